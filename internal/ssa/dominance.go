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

// Package ssa promotes ilgen's mem2reg-style load/store IR into true SSA
// form: dominator tree construction, dominance frontiers, phi placement,
// and renaming, per spec.md §4.5. The dominator-tree shape follows the
// arena-of-blocks style used by golang.org/x/tools' SSA package.
package ssa

import "github.com/blend65/blend65/internal/cfg"

// DomTree holds, for every reachable block, its immediate dominator and a
// reverse post-order numbering used by the renaming walk.
type DomTree struct {
	idom     map[cfg.BlockID]cfg.BlockID
	rpo      []cfg.BlockID
	rpoIndex map[cfg.BlockID]int
	children map[cfg.BlockID][]cfg.BlockID
}

// BuildDomTree computes immediate dominators with the iterative
// Cooper/Harvey/Kennedy algorithm, which converges quickly over reducible
// control flow such as the structured loops ilgen emits.
func BuildDomTree(g *cfg.Graph) *DomTree {
	rpo := reversePostOrder(g)
	rpoIndex := map[cfg.BlockID]int{}
	for i, b := range rpo {
		rpoIndex[b] = i
	}

	idom := map[cfg.BlockID]cfg.BlockID{g.Entry: g.Entry}
	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == g.Entry {
				continue
			}
			var newIdom cfg.BlockID
			first := true
			for _, p := range g.Predecessors(b) {
				if _, ok := idom[p]; !ok {
					continue
				}
				if first {
					newIdom = p
					first = false
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if first {
				continue // no processed predecessor yet
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	children := map[cfg.BlockID][]cfg.BlockID{}
	for b, d := range idom {
		if b == g.Entry {
			continue
		}
		children[d] = append(children[d], b)
	}

	return &DomTree{idom: idom, rpo: rpo, rpoIndex: rpoIndex, children: children}
}

func intersect(idom map[cfg.BlockID]cfg.BlockID, rpoIndex map[cfg.BlockID]int, a, b cfg.BlockID) cfg.BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostOrder(g *cfg.Graph) []cfg.BlockID {
	visited := map[cfg.BlockID]bool{}
	var post []cfg.BlockID
	var dfs func(cfg.BlockID)
	dfs = func(b cfg.BlockID) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range g.Successors(b) {
			dfs(s)
		}
		post = append(post, b)
	}
	dfs(g.Entry)
	rpo := make([]cfg.BlockID, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

// IDom returns b's immediate dominator, or (b, false) if b is unreachable.
func (t *DomTree) IDom(b cfg.BlockID) (cfg.BlockID, bool) {
	d, ok := t.idom[b]
	return d, ok
}

// Children returns the blocks b immediately dominates, used to walk the
// dominator tree during renaming.
func (t *DomTree) Children(b cfg.BlockID) []cfg.BlockID {
	return t.children[b]
}

// ReversePostOrder returns every reachable block in reverse postorder.
func (t *DomTree) ReversePostOrder() []cfg.BlockID {
	return t.rpo
}

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (t *DomTree) Dominates(a, b cfg.BlockID) bool {
	for b != a {
		d, ok := t.idom[b]
		if !ok {
			return false
		}
		if d == b {
			return false
		}
		b = d
	}
	return true
}
