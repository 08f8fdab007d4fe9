package nndescent

import (
	"math/rand"
	"sort"
)

// downsample returns at most m elements of ids chosen uniformly at random
// without replacement ("down-sample the candidate list to at most ⌈ρ·K⌉
// elements uniformly at random"). ids is not mutated; if len(ids) <= m, a
// copy of the whole slice is returned. The ids are sorted before shuffling,
// so which elements are chosen depends only on the set of ids and rng, not
// on their incoming order (a heap's internal layout varies with push order).
func downsample(ids []uint32, m int, rng *rand.Rand) []uint32 {
	if len(ids) <= m {
		out := make([]uint32, len(ids))
		copy(out, ids)
		return out
	}
	pool := make([]uint32, len(ids))
	copy(pool, ids)
	sort.Slice(pool, func(i, j int) bool { return pool[i] < pool[j] })
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:m]
}

// dedupConcat concatenates a and b, dropping duplicate ids (order among
// survivors follows first occurrence).
func dedupConcat(a, b []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(a)+len(b))
	out := make([]uint32, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// seededRand derives a deterministic, independent RNG from a set of
// integer coordinates (engine seed, iteration, point id, purpose salt).
// Keying on coordinates rather than on thread/goroutine identity is what
// makes the accepted-push *set* independent of how points happen to be
// scheduled across workers.
func seededRand(parts ...int64) *rand.Rand {
	var h uint64 = 0xcbf29ce484222325 // FNV-1a offset basis
	for _, p := range parts {
		h ^= uint64(p)
		h *= 0x100000001b3
	}
	return rand.New(rand.NewSource(int64(h)))
}
