package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraph_HasEntryAndExit(t *testing.T) {
	g := NewGraph()
	require.Len(t, g.Blocks, 2)
	assert.Equal(t, BlockID(0), g.Entry)
	assert.Equal(t, BlockID(1), g.Exit)
}

func TestAddEdge_IsSymmetric(t *testing.T) {
	g := NewGraph()
	mid := g.NewBlock("mid")
	g.AddEdge(g.Entry, mid)
	g.AddEdge(mid, g.Exit)

	assert.Equal(t, []BlockID{mid}, g.Successors(g.Entry))
	assert.Equal(t, []BlockID{g.Entry}, g.Predecessors(mid))
}

func TestReachableFromEntry_SkipsDeadBlock(t *testing.T) {
	g := NewGraph()
	mid := g.NewBlock("mid")
	dead := g.NewBlock("dead")
	g.AddEdge(g.Entry, mid)
	g.AddEdge(mid, g.Exit)
	_ = dead

	reachable := g.ReachableFromEntry()
	assert.True(t, reachable[g.Entry])
	assert.True(t, reachable[mid])
	assert.True(t, reachable[g.Exit])
	assert.False(t, reachable[dead])
}

func TestVerify_FlagsMissingTerminator(t *testing.T) {
	g := NewGraph()
	mid := g.NewBlock("mid")
	g.AddEdge(g.Entry, mid)
	g.Block(g.Entry).Terminator = TermJump
	// mid is reachable but never terminated and never connects to exit.
	problems := g.Verify()
	assert.NotEmpty(t, problems)
}

func TestVerify_CleanGraphHasNoProblems(t *testing.T) {
	g := NewGraph()
	mid := g.NewBlock("mid")
	g.AddEdge(g.Entry, mid)
	g.AddEdge(mid, g.Exit)
	g.Block(g.Entry).Terminator = TermJump
	g.Block(mid).Terminator = TermJump

	assert.Empty(t, g.Verify())
}
