// Package annheap implements SortedNeighbors, the small fixed-capacity
// max-heap NN-Descent uses to track, per vertex, the K best candidates seen
// so far. It is a flat array of length ≤ K with implicit binary-heap
// indexing (parent = (i-1)/2, children = 2i+1, 2i+2) — no dynamic
// allocation per push.
//
// The heap type itself is single-threaded and lock-free; callers that share
// a SortedNeighbors across goroutines (nndescent's local-join phase does)
// take the embedded Lock/Unlock around the operations that must be atomic
// together.
package annheap

import (
	"math"
	"sort"
	"sync"
)

// Record is a single neighbour candidate: a distance, the neighbour's
// point-id, and the "new/old" flag NN-Descent uses to avoid reconsidering
// the same pair twice.
type Record struct {
	Distance float32
	ID       uint32
	IsNew    bool
}

// SortedNeighbors is a bounded max-heap on Distance (root = worst =
// largest distance), holding at most Cap records with no duplicate ID.
type SortedNeighbors struct {
	mu   sync.Mutex
	cap  int
	recs []Record
}

// New returns an empty SortedNeighbors able to accept up to capacity records.
func New(capacity int) *SortedNeighbors {
	return &SortedNeighbors{cap: capacity, recs: make([]Record, 0, capacity)}
}

// Lock acquires the heap's mutex. Callers performing a read-modify-write
// sequence (e.g. peek-then-push) across multiple calls should hold this for
// the duration; individual methods do not lock themselves.
func (s *SortedNeighbors) Lock() { s.mu.Lock() }

// Unlock releases the heap's mutex.
func (s *SortedNeighbors) Unlock() { s.mu.Unlock() }

// Cap returns the heap's fixed capacity K.
func (s *SortedNeighbors) Cap() int { return s.cap }

// Len returns the number of records currently held.
func (s *SortedNeighbors) Len() int { return len(s.recs) }

// PeekWorst returns the current root distance if the heap is full, else
// +Inf — so that any first-time push until capacity is reached is accepted.
// Never fails.
func (s *SortedNeighbors) PeekWorst() float32 {
	if len(s.recs) < s.cap {
		return float32(math.Inf(1))
	}
	return s.recs[0].Distance
}

func (s *SortedNeighbors) contains(id uint32) bool {
	for _, r := range s.recs {
		if r.ID == id {
			return true
		}
	}
	return false
}

// CheckedHeapPush inserts (d, id) with IsNew=true unless d is no better than
// the current worst or id is already present, in which case it is a no-op
// that returns false. Returns true iff the record was accepted.
func (s *SortedNeighbors) CheckedHeapPush(d float32, id uint32) bool {
	return s.CheckedFlaggedHeapPush(d, id, true)
}

// CheckedFlaggedHeapPush is CheckedHeapPush with an explicit IsNew flag.
func (s *SortedNeighbors) CheckedFlaggedHeapPush(d float32, id uint32, flag bool) bool {
	if d >= s.PeekWorst() {
		return false
	}
	if s.contains(id) {
		return false
	}
	s.accept(d, id, flag)
	return true
}

// UncheckedHeapPush inserts (d, id, true) without validating the
// precondition that d < PeekWorst() and id is absent. Behaviour is
// undefined (here: it will corrupt the heap invariant) if the precondition
// does not hold — callers must have already established it, typically via
// a prior PeekWorst/contains check of their own.
func (s *SortedNeighbors) UncheckedHeapPush(d float32, id uint32) {
	s.accept(d, id, true)
}

// accept performs the accepting branch shared by all three push variants:
// replace the root and sift down if full, else append and sift up.
func (s *SortedNeighbors) accept(d float32, id uint32, flag bool) {
	rec := Record{Distance: d, ID: id, IsNew: flag}
	if len(s.recs) < s.cap {
		s.recs = append(s.recs, rec)
		s.siftUp(len(s.recs) - 1)
		return
	}
	s.recs[0] = rec
	s.siftDown(0)
}

func (s *SortedNeighbors) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if s.recs[parent].Distance >= s.recs[i].Distance {
			break
		}
		s.recs[parent], s.recs[i] = s.recs[i], s.recs[parent]
		i = parent
	}
}

func (s *SortedNeighbors) siftDown(i int) {
	n := len(s.recs)
	for {
		left, right := 2*i+1, 2*i+2
		largest := i
		if left < n && s.recs[left].Distance > s.recs[largest].Distance {
			largest = left
		}
		if right < n && s.recs[right].Distance > s.recs[largest].Distance {
			largest = right
		}
		if largest == i {
			break
		}
		s.recs[i], s.recs[largest] = s.recs[largest], s.recs[i]
		i = largest
	}
}

// Iter returns a copy of the current records in unspecified (heap) order.
func (s *SortedNeighbors) Iter() []Record {
	out := make([]Record, len(s.recs))
	copy(out, s.recs)
	return out
}

// DrainSorted consumes the heap, returning its records in ascending
// distance order.
func (s *SortedNeighbors) DrainSorted() []Record {
	out := make([]Record, len(s.recs))
	copy(out, s.recs)
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	s.recs = s.recs[:0]
	return out
}

// ClearFlag marks id's record, if present, as no longer new. Used by
// NN-Descent's sampling step to mark sampled elements as explored.
func (s *SortedNeighbors) ClearFlag(id uint32) {
	for i := range s.recs {
		if s.recs[i].ID == id {
			s.recs[i].IsNew = false
			return
		}
	}
}
