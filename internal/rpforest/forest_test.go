package rpforest

import (
	"context"
	"math/rand"
	"testing"

	"github.com/screenager/annd/internal/kernel/scalar"
	"github.com/screenager/annd/internal/vector"
)

func smallDataset(t *testing.T) *vector.Dataset {
	t.Helper()
	flat := []float32{
		0, 0,
		1, 0,
		0, 1,
		10, 10,
		10, 11,
	}
	ds, err := vector.NewDataset(flat, 2)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func idSet(buckets [][]uint32) map[uint32]bool {
	out := map[uint32]bool{}
	for _, b := range buckets {
		for _, id := range b {
			out[id] = true
		}
	}
	return out
}

func TestBuildCoversAllPoints(t *testing.T) {
	ds := smallDataset(t)
	k := scalar.New()
	rng := rand.New(rand.NewSource(42))

	leaves, err := Build(context.Background(), ds, k, 3, 2, 2, Euclidean, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(leaves) == 0 {
		t.Fatal("expected at least one leaf bucket")
	}

	seen := idSet(leaves)
	if len(seen) != ds.Len() {
		t.Fatalf("expected all %d points covered across buckets, saw %d", ds.Len(), len(seen))
	}
}

func TestBuildRespectsLeafSize(t *testing.T) {
	flat := make([]float32, 0, 200*4)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		flat = append(flat, rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32())
	}
	ds, err := vector.NewDataset(flat, 4)
	if err != nil {
		t.Fatal(err)
	}
	k := scalar.New()

	leaves, err := Build(context.Background(), ds, k, 4, 10, 4, Euclidean, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range leaves {
		if len(b) > 10 {
			t.Errorf("leaf bucket of size %d exceeds leaf_size 10", len(b))
		}
	}
}

func TestBuildAngularMode(t *testing.T) {
	ds := smallDataset(t)
	k := scalar.New()
	leaves, err := Build(context.Background(), ds, k, 2, 2, 1, Angular, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatal(err)
	}
	if len(idSet(leaves)) != ds.Len() {
		t.Fatal("angular-mode forest did not cover all points")
	}
}

func TestBuildRejectsBadParams(t *testing.T) {
	ds := smallDataset(t)
	k := scalar.New()
	rng := rand.New(rand.NewSource(1))

	if _, err := Build(context.Background(), ds, k, 0, 2, 1, Euclidean, rng); err == nil {
		t.Error("expected error for n_trees = 0")
	}
	if _, err := Build(context.Background(), ds, k, 1, 1, 1, Euclidean, rng); err == nil {
		t.Error("expected error for leaf_size < 2")
	}
	if _, err := Build(context.Background(), ds, k, 1, 2, 0, Euclidean, rng); err == nil {
		t.Error("expected error for n_threads = 0")
	}
}

func TestBuildSingleLeafWhenSmallerThanLeafSize(t *testing.T) {
	ds := smallDataset(t)
	k := scalar.New()
	leaves, err := Build(context.Background(), ds, k, 1, 100, 1, Euclidean, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	if len(leaves) != 1 || len(leaves[0]) != ds.Len() {
		t.Fatalf("expected a single leaf containing all points, got %v", leaves)
	}
}

func TestPickDistinctPairAlwaysDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 1000; i++ {
		p, q := pickDistinctPair(5, rng)
		if p == q {
			t.Fatalf("pickDistinctPair returned equal indices: %d, %d", p, q)
		}
	}
	if p, q := pickDistinctPair(1, rng); p != -1 || q != -1 {
		t.Errorf("expected (-1,-1) for n=1, got (%d,%d)", p, q)
	}
}
