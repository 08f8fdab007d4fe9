package nndescent

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/screenager/annd/internal/annheap"
	"github.com/screenager/annd/internal/rpforest"
	"github.com/screenager/annd/internal/vector"
)

// Build runs the full pipeline: optional normalisation, RP-forest seeding,
// then the NN-Descent iteration loop. Returns the completed graph, or an
// error if the builder's parameters are inconsistent or the context is
// cancelled mid-run.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	n := b.data.Len()
	k := b.k

	if !b.skipNormalization && b.metric.NormalizesByDefault() {
		if err := normalizeInPlace(ctx, b.data, b.nThreads); err != nil {
			return nil, fmt.Errorf("nndescent: normalising dataset: %w", err)
		}
	}

	heaps := make([]*annheap.SortedNeighbors, n)
	for i := range heaps {
		heaps[i] = annheap.New(k)
	}

	split := splitKindFor(b.metric)
	treeRNG := rand.New(rand.NewSource(b.seed))
	leaves, err := rpforest.Build(ctx, b.data, b.kernel, b.effectiveNTrees(), b.effectiveLeafSize(), b.nThreads, split, treeRNG)
	if err != nil {
		return nil, fmt.Errorf("nndescent: %w", err)
	}

	distFn := distanceFunc(b.kernel, b.metric)

	if err := seedFromLeaves(ctx, leaves, heaps, b.data, distFn, b.nThreads); err != nil {
		return nil, fmt.Errorf("nndescent: seeding heaps: %w", err)
	}

	threshold := int64(b.delta * float64(n) * float64(k))
	start := time.Now()
	for iter := 0; iter < b.maxIters; iter++ {
		accepted, err := runIteration(ctx, iter, heaps, b.data, distFn, k, b.rho, b.seed, b.nThreads)
		if err != nil {
			return nil, fmt.Errorf("nndescent: iteration %d: %w", iter, err)
		}
		if b.progress != nil {
			b.progress(iter, accepted, time.Since(start))
		}
		if accepted <= threshold {
			break
		}
	}

	return &Graph{k: k, heaps: heaps}, nil
}

func splitKindFor(m vector.Metric) rpforest.SplitKind {
	switch m {
	case vector.Cosine, vector.Angular:
		return rpforest.Angular
	default:
		return rpforest.Euclidean
	}
}

// forEachChunk partitions [0, n) into up to nThreads contiguous chunks and
// runs fn over each concurrently — the point space partitioned among
// workers, one goroutine per chunk rather than per point.
func forEachChunk(ctx context.Context, n, nThreads int, fn func(start, end int) error) error {
	if n == 0 {
		return nil
	}
	chunkSize := (n + nThreads - 1) / nThreads
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		start, end := start, end
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(start, end)
		})
	}
	return g.Wait()
}

func normalizeInPlace(ctx context.Context, data *vector.Dataset, nThreads int) error {
	// Normalisation is embarrassingly parallel: each thread owns a disjoint
	// slice of rows and touches nothing else, so a single pass partitioned
	// over chunks needs no further synchronisation.
	return forEachChunk(ctx, data.Len(), nThreads, func(start, end int) error {
		data.NormalizeRange(start, end)
		return nil
	})
}

// pushInto attempts to insert (d, y) into heaps[x], holding x's heap lock
// for the duration. Returns whether the push was accepted.
func pushInto(heaps []*annheap.SortedNeighbors, x, y uint32, d float32, flag bool) bool {
	if x == y {
		return false
	}
	h := heaps[x]
	h.Lock()
	defer h.Unlock()
	return h.CheckedFlaggedHeapPush(d, y, flag)
}

// seedFromLeaves seeds every heap from the RP forest's leaf buckets: for
// every unordered pair within a leaf, push each endpoint's distance into
// the other's heap. Leaves vary in size, so they're scheduled as
// independent tasks over a bounded worker pool rather than chunked by
// index.
func seedFromLeaves(ctx context.Context, leaves [][]uint32, heaps []*annheap.SortedNeighbors, data *vector.Dataset, distFn func(x, y []float32) float32, nThreads int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nThreads)
	for _, leaf := range leaves {
		leaf := leaf
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := 0; i < len(leaf); i++ {
				for j := i + 1; j < len(leaf); j++ {
					x, y := leaf[i], leaf[j]
					d := distFn(data.At(int(x)).Data(), data.At(int(y)).Data())
					pushInto(heaps, x, y, d, true)
					pushInto(heaps, y, x, d, true)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// runIteration performs one sample / reverse-lists / local-joins round and
// returns the number of accepted pushes.
func runIteration(ctx context.Context, iter int, heaps []*annheap.SortedNeighbors, data *vector.Dataset, distFn func(x, y []float32) float32, k int, rho float64, seed int64, nThreads int) (int64, error) {
	n := len(heaps)
	m := int(math.Ceil(rho * float64(k)))
	if m < 1 {
		m = 1
	}

	newP := make([][]uint32, n)
	oldP := make([][]uint32, n)

	err := forEachChunk(ctx, n, nThreads, func(start, end int) error {
		for p := start; p < end; p++ {
			recs := heaps[p].Iter()
			var newIDs, oldIDs []uint32
			for _, r := range recs {
				if r.IsNew {
					newIDs = append(newIDs, r.ID)
				} else {
					oldIDs = append(oldIDs, r.ID)
				}
			}
			sampledNew := downsample(newIDs, m, seededRand(seed, int64(iter), int64(p), 1))
			sampledOld := downsample(oldIDs, m, seededRand(seed, int64(iter), int64(p), 2))
			for _, id := range sampledNew {
				heaps[p].ClearFlag(id)
			}
			newP[p] = sampledNew
			oldP[p] = sampledOld
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Reverse lists: for every q sampled by p, p belongs to q's reverse
	// list. Building this requires every point's sample to be known first
	// (a barrier), so it runs as one sequential pass — cheap relative to
	// the join phase below, which dominates iteration cost.
	newRev := make([][]uint32, n)
	oldRev := make([][]uint32, n)
	for p := 0; p < n; p++ {
		for _, q := range newP[p] {
			newRev[q] = append(newRev[q], uint32(p))
		}
		for _, q := range oldP[p] {
			oldRev[q] = append(oldRev[q], uint32(p))
		}
	}

	candNew := make([][]uint32, n)
	candOld := make([][]uint32, n)
	err = forEachChunk(ctx, n, nThreads, func(start, end int) error {
		for p := start; p < end; p++ {
			candNew[p] = downsample(dedupConcat(newP[p], newRev[p]), m, seededRand(seed, int64(iter), int64(p), 3))
			candOld[p] = downsample(dedupConcat(oldP[p], oldRev[p]), m, seededRand(seed, int64(iter), int64(p), 4))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var accepted int64
	err = forEachChunk(ctx, n, nThreads, func(start, end int) error {
		var local int64
		for p := start; p < end; p++ {
			np := candNew[p]
			combined := make([]uint32, 0, len(np)+len(candOld[p]))
			combined = append(combined, np...)
			combined = append(combined, candOld[p]...)
			for _, u := range np {
				for _, v := range combined {
					if u >= v {
						continue
					}
					d := distFn(data.At(int(u)).Data(), data.At(int(v)).Data())
					if pushInto(heaps, u, v, d, true) {
						local++
					}
					if pushInto(heaps, v, u, d, true) {
						local++
					}
				}
			}
		}
		atomic.AddInt64(&accepted, local)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return accepted, nil
}
