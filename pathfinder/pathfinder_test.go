package pathfinder

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbwatch/market"
)

var (
	tokenX = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000001"), 18, "X")
	tokenY = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000002"), 18, "Y")
	tokenZ = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000003"), 18, "Z")
	tokenW = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000004"), 18, "W")
)

func triangleGraph() *market.TokenGraph {
	graph := market.NewTokenGraph()
	graph.AddEdge(tokenX, tokenY)
	graph.AddEdge(tokenY, tokenZ)
	graph.AddEdge(tokenX, tokenZ)
	return graph
}

func cyclePaths(cycles [][]market.Asset) []string {
	paths := make([]string, len(cycles))
	for i, cycle := range cycles {
		paths[i] = market.PathString(cycle)
	}
	return paths
}

func TestFindCyclesTriangle(t *testing.T) {
	finder := NewPathFinder(triangleGraph(), zap.NewNop())
	cycles := finder.FindCycles(tokenX, 3)

	assert.Contains(t, cyclePaths(cycles), "X -> Y -> Z -> X")
	assert.Contains(t, cyclePaths(cycles), "X -> Z -> Y -> X")
}

func TestFindCyclesValidity(t *testing.T) {
	graph := triangleGraph()
	graph.AddEdge(tokenW, tokenX)
	graph.AddEdge(tokenW, tokenY)
	graph.AddEdge(tokenW, tokenZ)

	finder := NewPathFinder(graph, zap.NewNop())
	cycles := finder.FindCycles(tokenX, 3)

	assert.NotEmpty(t, cycles)
	for _, cycle := range cycles {
		assert.True(t, cycle[0].Equal(tokenX), "cycle must start at base")
		assert.True(t, cycle[len(cycle)-1].Equal(tokenX), "cycle must end at base")
		assert.LessOrEqual(t, len(cycle)-1, 3, "cycle must respect hop bound")

		seen := make(map[string]bool)
		for _, asset := range cycle[1 : len(cycle)-1] {
			assert.False(t, seen[asset.Symbol], "intermediate assets must not repeat")
			seen[asset.Symbol] = true
		}
	}
}

func TestFindCyclesMaxHopsOne(t *testing.T) {
	finder := NewPathFinder(triangleGraph(), zap.NewNop())
	assert.Empty(t, finder.FindCycles(tokenX, 1))
	assert.Empty(t, finder.FindCycles(tokenX, 0))
}

func TestFindCyclesNoDegenerateBounce(t *testing.T) {
	// X-Y only: the single edge back and forth is not a cycle.
	graph := market.NewTokenGraph()
	graph.AddEdge(tokenX, tokenY)

	finder := NewPathFinder(graph, zap.NewNop())
	assert.Empty(t, finder.FindCycles(tokenX, 3))
}

func TestFindCyclesIsolatedBase(t *testing.T) {
	graph := market.NewTokenGraph()
	graph.AddEdge(tokenY, tokenZ)

	finder := NewPathFinder(graph, zap.NewNop())
	assert.Empty(t, finder.FindCycles(tokenX, 3))
}

func TestFindCyclesHopBoundExcludesLongerCycles(t *testing.T) {
	// X-Y-Z-W-X is a 4-hop cycle; with maxHops 3 only the X-Y/X-Z/Y-Z
	// triangle (absent here) could close, so nothing is found.
	graph := market.NewTokenGraph()
	graph.AddEdge(tokenX, tokenY)
	graph.AddEdge(tokenY, tokenZ)
	graph.AddEdge(tokenZ, tokenW)
	graph.AddEdge(tokenW, tokenX)

	finder := NewPathFinder(graph, zap.NewNop())
	assert.Empty(t, finder.FindCycles(tokenX, 3))
	assert.NotEmpty(t, finder.FindCycles(tokenX, 4))
}

func TestFindCyclesBacktrackingReusesAssets(t *testing.T) {
	// Two disjoint triangles through X share no intermediates, but the
	// same asset may appear in different cycles.
	graph := triangleGraph()
	graph.AddEdge(tokenX, tokenW)
	graph.AddEdge(tokenW, tokenY)

	finder := NewPathFinder(graph, zap.NewNop())
	paths := cyclePaths(finder.FindCycles(tokenX, 3))

	assert.Contains(t, paths, "X -> Y -> Z -> X")
	assert.Contains(t, paths, "X -> W -> Y -> X")
}
