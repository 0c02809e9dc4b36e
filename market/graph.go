package market

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// TokenGraph is an undirected adjacency index over assets. An edge means a
// liquidity pair exists between the two assets. The graph only grows: edges
// are never retracted, so concurrent readers never observe a shrinking view.
type TokenGraph struct {
	mu    sync.RWMutex
	nodes map[common.Address]Asset
	adj   map[common.Address]map[common.Address]struct{}
}

// NewTokenGraph creates an empty graph.
func NewTokenGraph() *TokenGraph {
	return &TokenGraph{
		nodes: make(map[common.Address]Asset),
		adj:   make(map[common.Address]map[common.Address]struct{}),
	}
}

// AddEdge registers both assets as nodes and records the bidirectional
// adjacency between them. Idempotent.
func (g *TokenGraph) AddEdge(a, b Asset) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ensureNode(a)
	g.ensureNode(b)
	g.adj[a.Address][b.Address] = struct{}{}
	g.adj[b.Address][a.Address] = struct{}{}
}

func (g *TokenGraph) ensureNode(asset Asset) {
	if _, ok := g.nodes[asset.Address]; ok {
		return
	}
	g.nodes[asset.Address] = asset
	g.adj[asset.Address] = make(map[common.Address]struct{})
}

// HasEdge reports whether a pair exists between the two assets.
func (g *TokenGraph) HasEdge(a, b Asset) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	neighbors, ok := g.adj[a.Address]
	if !ok {
		return false
	}
	_, ok = neighbors[b.Address]
	return ok
}

// Neighbors returns the adjacency set of an asset. Unknown assets return an
// empty slice, not an error.
func (g *TokenGraph) Neighbors(asset Asset) []Asset {
	g.mu.RLock()
	defer g.mu.RUnlock()

	neighbors, ok := g.adj[asset.Address]
	if !ok {
		return nil
	}

	result := make([]Asset, 0, len(neighbors))
	for addr := range neighbors {
		result = append(result, g.nodes[addr])
	}
	return result
}

// NodeCount returns the number of registered assets.
func (g *TokenGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *TokenGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := 0
	for _, neighbors := range g.adj {
		total += len(neighbors)
	}
	return total / 2
}
