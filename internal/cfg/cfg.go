// Copyright 2026 Blend65 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cfg implements the per-function control-flow graph as an arena of
// blocks addressed by integer id, per spec.md §3.5 and §9's replacement for
// "cyclic references between... CFG blocks" ("arena + integer-index
// handles;  iteration uses the arena, never raw pointers").
package cfg

// BlockID indexes into a Graph's block arena.
type BlockID int

const InvalidBlock BlockID = -1

// Block is one basic block: a maximal straight-line run with a single entry
// and single terminating instruction. The instructions themselves are kept
// by the graph's owner (the IL keeps them in il.Function.Code), so Block
// carries only an opaque instruction-count plus Terminator summary the
// analyses need.
type Block struct {
	ID           BlockID
	Label        string
	Preds, Succs []BlockID
	Terminator   TerminatorKind
	// InstrCount lets a reachability/DCE pass reason about emptiness
	// without needing the owning package's concrete instruction type.
	InstrCount int
}

// TerminatorKind is the closed set of ways a block can end.
type TerminatorKind int

const (
	TermNone TerminatorKind = iota // not yet terminated (under construction)
	TermJump
	TermBranch
	TermReturn
	TermReturnVoid
)

// Graph is one function's control-flow graph: an arena of blocks plus the
// designated entry/exit ids.
type Graph struct {
	Blocks     []*Block
	Entry, Exit BlockID
}

func NewGraph() *Graph {
	g := &Graph{}
	entry := g.NewBlock("entry")
	exit := g.NewBlock("exit")
	g.Entry = entry
	g.Exit = exit
	return g
}

// NewBlock appends a fresh, unterminated block and returns its id.
func (g *Graph) NewBlock(label string) BlockID {
	id := BlockID(len(g.Blocks))
	g.Blocks = append(g.Blocks, &Block{ID: id, Label: label})
	return id
}

func (g *Graph) Block(id BlockID) *Block {
	return g.Blocks[id]
}

// AddEdge records a CFG edge from -> to. Per spec.md §8, every edge must be
// bidirectional in the sense that successor/predecessor lists agree; AddEdge
// maintains that invariant by construction.
func (g *Graph) AddEdge(from, to BlockID) {
	f, t := g.Block(from), g.Block(to)
	f.Succs = append(f.Succs, to)
	t.Preds = append(t.Preds, from)
}

// Predecessors/Successors are convenience accessors mirroring spec.md §3.5's
// BasicBlock shape.
func (g *Graph) Predecessors(id BlockID) []BlockID { return g.Block(id).Preds }
func (g *Graph) Successors(id BlockID) []BlockID   { return g.Block(id).Succs }

// ReachableFromEntry runs a forward DFS from Entry and returns the set of
// reachable block ids, used by Verify and by unreachable-block elimination
// (optimizer).
func (g *Graph) ReachableFromEntry() map[BlockID]bool {
	seen := map[BlockID]bool{}
	var stack []BlockID
	stack = append(stack, g.Entry)
	for len(stack) > 0 {
		n := len(stack) - 1
		id := stack[n]
		stack = stack[:n]
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, s := range g.Successors(id) {
			if !seen[s] {
				stack = append(stack, s)
			}
		}
	}
	return seen
}

// Verify checks the invariants from spec.md §3.5/§8: every non-entry
// reachable block has >=1 predecessor, every non-exit reachable block has a
// terminator, entry has no predecessors, exit has no successors, and every
// edge is recorded symmetrically.
func (g *Graph) Verify() []string {
	var problems []string
	reachable := g.ReachableFromEntry()

	if len(g.Block(g.Entry).Preds) != 0 {
		problems = append(problems, "entry block has predecessors")
	}
	if len(g.Block(g.Exit).Succs) != 0 {
		problems = append(problems, "exit block has successors")
	}
	for _, b := range g.Blocks {
		if !reachable[b.ID] {
			continue
		}
		if b.ID != g.Entry && len(b.Preds) == 0 {
			problems = append(problems, "reachable non-entry block has no predecessors: "+b.Label)
		}
		if b.ID != g.Exit && b.Terminator == TermNone {
			problems = append(problems, "reachable non-exit block has no terminator: "+b.Label)
		}
	}
	for _, b := range g.Blocks {
		for _, s := range b.Succs {
			found := false
			for _, p := range g.Block(s).Preds {
				if p == b.ID {
					found = true
					break
				}
			}
			if !found {
				problems = append(problems, "asymmetric edge: "+b.Label+" -> missing predecessor back-link")
			}
		}
	}
	return problems
}
