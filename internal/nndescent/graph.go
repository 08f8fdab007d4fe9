package nndescent

import (
	"sort"

	"github.com/screenager/annd/internal/annheap"
	"github.com/screenager/annd/internal/kernel"
	"github.com/screenager/annd/internal/vector"
)

// Neighbor is one entry of a point's ascending-sorted neighbour list.
type Neighbor struct {
	ID       uint32
	Distance float32
}

// Graph is the completed K-NN graph: one bounded heap per point.
type Graph struct {
	k     int
	heaps []*annheap.SortedNeighbors
}

// K returns the configured neighbourhood size.
func (g *Graph) K() int { return g.k }

// N returns the number of points in the graph.
func (g *Graph) N() int { return len(g.heaps) }

// Neighbors returns point id's current heap contents in unspecified order.
func (g *Graph) Neighbors(id uint32) []annheap.Record {
	return g.heaps[id].Iter()
}

// SortedGraph returns, for every point, its neighbours sorted ascending by
// distance — the N×K presentation build() promises callers. This does not
// mutate the underlying heaps.
func (g *Graph) SortedGraph() [][]Neighbor {
	out := make([][]Neighbor, len(g.heaps))
	for p, h := range g.heaps {
		recs := h.Iter()
		sort.Slice(recs, func(i, j int) bool { return recs[i].Distance < recs[j].Distance })
		ns := make([]Neighbor, len(recs))
		for i, r := range recs {
			ns[i] = Neighbor{ID: r.ID, Distance: r.Distance}
		}
		out[p] = ns
	}
	return out
}

// distanceFunc returns the pairwise distance function for a metric, given a
// kernel backend. SquaredEuclidean and Cosine map directly onto the
// matching kernel operation. Dot-product similarity is larger-is-better, so
// it is negated to behave as a distance (smaller is better) the heap can
// consume directly. Angular has no separate formula in the kernel
// interface beyond the hyperplane construction used for forest splitting,
// so it reuses the Cosine distance — the standard ANN-benchmark convention
// of treating "angular distance" as 1 − cosine similarity (a decision
// recorded in the design ledger).
func distanceFunc(k kernel.Kernel, m vector.Metric) func(x, y []float32) float32 {
	switch m {
	case vector.SquaredEuclidean:
		return k.SquaredEuclidean
	case vector.Cosine, vector.Angular:
		return k.Cosine
	case vector.Dot:
		return func(x, y []float32) float32 { return -k.Dot(x, y) }
	default:
		return k.SquaredEuclidean
	}
}
