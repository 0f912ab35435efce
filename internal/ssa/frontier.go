package ssa

import "github.com/blend65/blend65/internal/cfg"

// DominanceFrontier computes, for every reachable block, the set of blocks
// in its dominance frontier, per spec.md §4.5 ("dominance frontier,
// standard join-point algorithm keyed off the dominator tree").
func DominanceFrontier(g *cfg.Graph, t *DomTree) map[cfg.BlockID]map[cfg.BlockID]bool {
	df := map[cfg.BlockID]map[cfg.BlockID]bool{}
	for _, b := range t.rpo {
		df[b] = map[cfg.BlockID]bool{}
	}
	for _, b := range t.rpo {
		preds := g.Predecessors(b)
		if len(preds) < 2 {
			continue
		}
		idomB, _ := t.IDom(b)
		for _, p := range preds {
			if _, ok := t.IDom(p); !ok {
				continue
			}
			runner := p
			for runner != idomB {
				df[runner][b] = true
				next, ok := t.IDom(runner)
				if !ok || next == runner {
					break
				}
				runner = next
			}
		}
	}
	return df
}
