// Package nndescent implements the NN-Descent refinement loop bootstrapped
// by an RP forest, exposing the exact builder-chain surface
// eonn-demo/src/main.rs drives: with_data/with_metric/with_n_neighbors/...
// /build(). Go-idiomatic adaptation: each With* returns *Builder and
// Build(ctx) returns (*Graph, error) instead of panicking on misuse.
package nndescent

import (
	"fmt"
	"time"

	"github.com/screenager/annd/internal/kernel"
	"github.com/screenager/annd/internal/kernel/scalar"
	"github.com/screenager/annd/internal/vector"
)

// ProgressFunc is invoked once per completed iteration with the iteration
// index (0-based), the number of accepted pushes that iteration, and
// elapsed wall time since Build started. A plain callback over os.Stderr,
// no structured-logging dependency — the same shape as
// internal/index.ProgressFunc / cmd/sift's makeProgressPrinter.
type ProgressFunc func(iteration int, accepted int64, elapsed time.Duration)

// Builder accumulates NN-Descent parameters before Build. The zero value is
// not directly usable; construct with NewBuilder.
type Builder struct {
	data               *vector.Dataset
	metric             vector.Metric
	kernel             kernel.Kernel
	k                  int
	nThreads           int
	skipNormalization  bool
	nTrees             int
	leafSize           int
	maxIters           int
	delta              float64
	rho                float64
	seed               int64
	progress           ProgressFunc
}

// NewBuilder returns a Builder with conservative defaults: SquaredEuclidean
// metric, 1 worker thread, max_iters = 10, delta = 0.001, rho = 0.5.
func NewBuilder() *Builder {
	return &Builder{
		metric:   vector.SquaredEuclidean,
		kernel:   scalar.New(),
		nThreads: 1,
		maxIters: 10,
		delta:    0.001,
		rho:      0.5,
		seed:     1,
	}
}

// WithData sets the dataset to index. Required.
func (b *Builder) WithData(data *vector.Dataset) *Builder {
	b.data = data
	return b
}

// WithMetric selects the distance metric.
func (b *Builder) WithMetric(m vector.Metric) *Builder {
	b.metric = m
	return b
}

// WithKernel overrides the distance-kernel backend (default: scalar.New()).
func (b *Builder) WithKernel(k kernel.Kernel) *Builder {
	b.kernel = k
	return b
}

// WithNNeighbors sets K, the target neighbourhood size. Required.
func (b *Builder) WithNNeighbors(k int) *Builder {
	b.k = k
	return b
}

// WithNThreads sets the fixed worker-pool size for all parallel phases.
func (b *Builder) WithNThreads(n int) *Builder {
	b.nThreads = n
	return b
}

// WithSkipNormalization disables the automatic unit-normalisation
// pre-processing step that otherwise runs when the metric is Cosine or
// Angular.
func (b *Builder) WithSkipNormalization(skip bool) *Builder {
	b.skipNormalization = skip
	return b
}

// WithNTrees sets the number of RP-forest trees. If unset, Build derives a
// default from N.
func (b *Builder) WithNTrees(n int) *Builder {
	b.nTrees = n
	return b
}

// WithLeafSize sets the RP-forest leaf bucket size cap. If unset, Build
// derives max(K, 30).
func (b *Builder) WithLeafSize(n int) *Builder {
	b.leafSize = n
	return b
}

// WithMaxIters caps the number of NN-Descent iterations.
func (b *Builder) WithMaxIters(n int) *Builder {
	b.maxIters = n
	return b
}

// WithDelta sets the convergence fraction: iteration stops early once
// accepted pushes in a round fall to or below delta*N*K.
func (b *Builder) WithDelta(d float64) *Builder {
	b.delta = d
	return b
}

// WithRho sets the per-iteration sampling rate (fraction of K sampled from
// each of the new/old candidate lists).
func (b *Builder) WithRho(r float64) *Builder {
	b.rho = r
	return b
}

// WithSeed sets the RNG seed driving forest construction and per-iteration
// sampling. Same seed, thread count and scheduling reproduce identical
// graphs.
func (b *Builder) WithSeed(seed int64) *Builder {
	b.seed = seed
	return b
}

// WithProgress installs a callback invoked once per completed iteration.
func (b *Builder) WithProgress(p ProgressFunc) *Builder {
	b.progress = p
	return b
}

// validate checks builder-level invariants that must be caught before the
// pipeline runs, returning a descriptive error if parameters are
// inconsistent rather than letting the pipeline fail partway through.
func (b *Builder) validate() error {
	if b.data == nil {
		return fmt.Errorf("nndescent: no dataset provided")
	}
	n := b.data.Len()
	if b.k <= 0 {
		return fmt.Errorf("nndescent: n_neighbors must be positive, got %d", b.k)
	}
	if b.k >= n {
		return fmt.Errorf("nndescent: n_neighbors (%d) must be less than dataset size (%d)", b.k, n)
	}
	if b.nThreads <= 0 {
		return fmt.Errorf("nndescent: n_threads must be positive, got %d", b.nThreads)
	}
	leafSize := b.effectiveLeafSize()
	if leafSize < 2 {
		return fmt.Errorf("nndescent: leaf_size must be >= 2, got %d", leafSize)
	}
	return nil
}

func (b *Builder) effectiveLeafSize() int {
	if b.leafSize > 0 {
		return b.leafSize
	}
	if b.k > 30 {
		return b.k
	}
	return 30
}

func (b *Builder) effectiveNTrees() int {
	if b.nTrees > 0 {
		return b.nTrees
	}
	// Default derived from N: enough trees that every point is likely to
	// appear in several independently-partitioned leaves.
	n := b.data.Len()
	switch {
	case n <= 1000:
		return 8
	case n <= 100000:
		return 16
	default:
		return 32
	}
}
