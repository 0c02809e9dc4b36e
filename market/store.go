package market

import (
	"sync"
)

// PairStore holds the latest reserve snapshot per pair, keyed by the
// canonical pair key. First insertion of a pair registers its edge in the
// token graph as a side effect.
//
// A read during evaluation may observe a snapshot from a different tick than
// a concurrently arriving update. The monitor confines writes to its refresh
// phase, so staleness is bounded by one tick interval.
type PairStore struct {
	mu    sync.RWMutex
	pairs map[PairKey]*Pair
	graph *TokenGraph
}

// NewPairStore creates a store backed by the given graph.
func NewPairStore(graph *TokenGraph) *PairStore {
	return &PairStore{
		pairs: make(map[PairKey]*Pair),
		graph: graph,
	}
}

// Upsert replaces the stored snapshot for the pair's canonical key.
func (s *PairStore) Upsert(pair *Pair) {
	key := pair.Key()

	s.mu.Lock()
	_, existed := s.pairs[key]
	s.pairs[key] = pair
	s.mu.Unlock()

	if !existed {
		s.graph.AddEdge(pair.AssetA, pair.AssetB)
	}
}

// Get returns the snapshot for the unordered pair {a,b}, or false if the
// pair has never been seen.
func (s *PairStore) Get(a, b Asset) (*Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pair, ok := s.pairs[KeyFor(a, b)]
	return pair, ok
}

// Len returns the number of stored pairs.
func (s *PairStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

// Keys returns the canonical keys of every stored pair.
func (s *PairStore) Keys() []PairKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]PairKey, 0, len(s.pairs))
	for key := range s.pairs {
		keys = append(keys, key)
	}
	return keys
}

// Clear drops all snapshots. Called on monitor shutdown.
func (s *PairStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = make(map[PairKey]*Pair)
}
