// Package pathfinder enumerates candidate arbitrage cycles over the token
// graph: depth-first search from a base asset, bounded by a maximum hop
// count, emitting every simple cycle that returns to the base.
package pathfinder

import (
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbwatch/market"
)

// PathFinder searches the token graph for cycles rooted at a base asset.
type PathFinder struct {
	graph  *market.TokenGraph
	logger *zap.Logger
}

// NewPathFinder creates a path finder over the given graph.
func NewPathFinder(graph *market.TokenGraph, logger *zap.Logger) *PathFinder {
	return &PathFinder{
		graph:  graph,
		logger: logger,
	}
}

// FindCycles returns every simple cycle of at most maxHops hops starting and
// ending at base. Intermediate assets never repeat within one cycle; the
// base asset only reappears as the closing node. A cycle needs at least two
// hops, so maxHops < 2 yields no cycles. Ordering follows DFS discovery and
// is not part of the contract.
func (f *PathFinder) FindCycles(base market.Asset, maxHops int) [][]market.Asset {
	if maxHops < 2 {
		return nil
	}

	search := &cycleSearch{
		graph:   f.graph,
		base:    base,
		maxHops: maxHops,
		index:   make(map[string]int),
	}
	search.markVisited(base)
	search.walk(base, []market.Asset{base})

	if f.logger != nil {
		f.logger.Debug("Cycle search finished",
			zap.String("base", base.String()),
			zap.Int("max_hops", maxHops),
			zap.Int("cycles", len(search.cycles)),
		)
	}
	return search.cycles
}

// cycleSearch holds the state of one FindCycles call. Assets are mapped to
// small integer indices on first sight so the visited set is a plain bitset.
type cycleSearch struct {
	graph   *market.TokenGraph
	base    market.Asset
	maxHops int

	index   map[string]int
	visited bitset
	cycles  [][]market.Asset
}

func (s *cycleSearch) indexOf(asset market.Asset) int {
	key := asset.Address.Hex()
	if idx, ok := s.index[key]; ok {
		return idx
	}
	idx := len(s.index)
	s.index[key] = idx
	return idx
}

func (s *cycleSearch) markVisited(asset market.Asset) {
	s.visited.set(s.indexOf(asset))
}

func (s *cycleSearch) unmarkVisited(asset market.Asset) {
	s.visited.clear(s.indexOf(asset))
}

func (s *cycleSearch) isVisited(asset market.Asset) bool {
	return s.visited.has(s.indexOf(asset))
}

// walk extends path from current, emitting a closed cycle whenever the
// current node has at least two hops behind it and a direct edge back to the
// base. path includes the base as its first element, so hops = len(path)-1.
func (s *cycleSearch) walk(current market.Asset, path []market.Asset) {
	hops := len(path) - 1

	// The closing edge back to base counts as a hop, so a cycle emitted here
	// has hops+1 edges and must still fit inside the bound.
	if hops >= 2 && hops < s.maxHops && s.graph.HasEdge(current, s.base) {
		cycle := make([]market.Asset, len(path)+1)
		copy(cycle, path)
		cycle[len(path)] = s.base
		s.cycles = append(s.cycles, cycle)
		return
	}

	if hops+1 >= s.maxHops {
		return
	}

	for _, next := range s.graph.Neighbors(current) {
		if next.Equal(s.base) {
			// The closing edge is handled above; taking it as a regular hop
			// would produce a degenerate two-node bounce.
			continue
		}
		if s.isVisited(next) {
			continue
		}

		s.markVisited(next)
		s.walk(next, append(path, next))
		s.unmarkVisited(next)
	}
}

// bitset is a growable bitmap over small integer indices.
type bitset []uint64

func (b *bitset) set(i int) {
	word := i >> 6
	for len(*b) <= word {
		*b = append(*b, 0)
	}
	(*b)[word] |= 1 << uint(i&63)
}

func (b *bitset) clear(i int) {
	word := i >> 6
	if word < len(*b) {
		(*b)[word] &^= 1 << uint(i&63)
	}
}

func (b bitset) has(i int) bool {
	word := i >> 6
	return word < len(b) && b[word]&(1<<uint(i&63)) != 0
}
