// Package rpforest builds the random-projection forest used to bootstrap
// NN-Descent's initial heaps. Each tree recursively splits a
// set of point-ids with a random hyperplane until every leaf is small
// enough, and the forest's leaf buckets become the seed candidate lists
// internal/nndescent pushes into its heaps. Grounded on
// igris-spacial/src/rp_tree.rs's TreeType enum and recursive split
// structure, and on benches/bench_rp_forest.rs's make_forest signature.
package rpforest

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/screenager/annd/internal/kernel"
	"github.com/screenager/annd/internal/vector"
)

// SplitKind selects the hyperplane family a tree uses at every internal
// node, mirroring igris-spacial/src/rp_tree.rs's TreeType.
type SplitKind int

const (
	// Angular splits on angular_hyperplane(p, q); offset is always zero.
	Angular SplitKind = iota
	// Euclidean splits on euclidean_hyperplane(p, q).
	Euclidean
)

func (s SplitKind) String() string {
	switch s {
	case Angular:
		return "angular"
	case Euclidean:
		return "euclidean"
	default:
		return fmt.Sprintf("rpforest.SplitKind(%d)", int(s))
	}
}

// Build constructs nTrees independent random-projection trees over data and
// returns the multiset of leaf buckets across the whole forest (a leaf's
// contribution is the point-ids it contains; the tree shape itself is
// discarded once its leaves are collected). Trees are
// built concurrently over an errgroup bounded to nThreads goroutines, each
// with an independently seeded *rand.Rand derived from rng.
func Build(ctx context.Context, data *vector.Dataset, k kernel.Kernel, nTrees, leafSize, nThreads int, split SplitKind, rng *rand.Rand) ([][]uint32, error) {
	if nTrees <= 0 {
		return nil, fmt.Errorf("rpforest: n_trees must be positive, got %d", nTrees)
	}
	if leafSize < 2 {
		return nil, fmt.Errorf("rpforest: leaf_size must be >= 2, got %d", leafSize)
	}
	if nThreads <= 0 {
		return nil, fmt.Errorf("rpforest: n_threads must be positive, got %d", nThreads)
	}

	treeSeeds := make([]int64, nTrees)
	for i := range treeSeeds {
		treeSeeds[i] = rng.Int63()
	}

	leaves := make([][][]uint32, nTrees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nThreads)

	for i := 0; i < nTrees; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			allIDs := make([]uint32, data.Len())
			for p := range allIDs {
				allIDs[p] = uint32(p)
			}
			treeRng := rand.New(rand.NewSource(treeSeeds[i]))
			var collected [][]uint32
			buildTree(data, k, allIDs, leafSize, split, treeRng, &collected)
			leaves[i] = collected
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rpforest: building forest: %w", err)
	}

	var out [][]uint32
	for _, ls := range leaves {
		out = append(out, ls...)
	}
	return out, nil
}

// buildTree recursively splits ids, appending each emitted leaf bucket to
// *out: pick two distinct points, build a hyperplane between them, partition
// ids by which side of it they fall on, and recurse on each side.
func buildTree(data *vector.Dataset, k kernel.Kernel, ids []uint32, leafSize int, split SplitKind, rng *rand.Rand, out *[][]uint32) {
	if len(ids) <= leafSize {
		*out = append(*out, ids)
		return
	}

	pIdx, qIdx := pickDistinctPair(len(ids), rng)
	if pIdx < 0 {
		// Fewer than two distinct indices available to pick from: the set
		// cannot be meaningfully split.
		*out = append(*out, ids)
		return
	}
	p, q := ids[pIdx], ids[qIdx]

	var sideOf func(r uint32) int // -1, 0 (boundary), or +1
	switch split {
	case Angular:
		h := k.AngularHyperplane(data.At(int(p)).Data(), data.At(int(q)).Data())
		sideOf = func(r uint32) int { return signOf(k.Dot(h, data.At(int(r)).Data())) }
	default:
		h, off := k.EuclideanHyperplane(data.At(int(p)).Data(), data.At(int(q)).Data())
		sideOf = func(r uint32) int { return signOf(k.Dot(h, data.At(int(r)).Data()) + off) }
	}

	var plus, minus []uint32
	coinFlip := false
	for _, r := range ids {
		switch sideOf(r) {
		case 1:
			plus = append(plus, r)
		case -1:
			minus = append(minus, r)
		default:
			// Exact-zero projection: alternate sides deterministically so
			// boundary points don't all pile onto one partition.
			if coinFlip {
				plus = append(plus, r)
			} else {
				minus = append(minus, r)
			}
			coinFlip = !coinFlip
		}
	}

	if len(plus) == 0 || len(minus) == 0 {
		// Degenerate partition: every point landed on one side. Emit as a
		// leaf unchanged to guarantee termination.
		*out = append(*out, ids)
		return
	}

	buildTree(data, k, plus, leafSize, split, rng, out)
	buildTree(data, k, minus, leafSize, split, rng, out)
}

// pickDistinctPair returns two distinct indices in [0, n) chosen uniformly
// at random, or (-1, -1) if n < 2.
func pickDistinctPair(n int, rng *rand.Rand) (int, int) {
	if n < 2 {
		return -1, -1
	}
	p := rng.Intn(n)
	q := rng.Intn(n - 1)
	if q >= p {
		q++
	}
	return p, q
}

func signOf(v float32) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
