package optimizer

import (
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
)

// UnreachableBlockElimination drops every block the CFG's own reachability
// walk can't reach from entry, grounded on the same cfg.Graph.Verify
// reachability walk internal/cfg already performs for structural checks.
type UnreachableBlockElimination struct{}

func (UnreachableBlockElimination) Name() string { return "unreachable-block-elimination" }

func (p *UnreachableBlockElimination) Apply(fn *il.Function, _ *diag.Collector) bool {
	reachable := fn.CFG.ReachableFromEntry()
	reachable[fn.CFG.Entry] = true

	changed := false
	kept := fn.CFG.Blocks[:0]
	for _, b := range fn.CFG.Blocks {
		if reachable[b.ID] {
			kept = append(kept, b)
			continue
		}
		delete(fn.Code, b.ID)
		changed = true
	}
	fn.CFG.Blocks = kept

	for _, b := range fn.CFG.Blocks {
		filteredPreds := b.Preds[:0]
		for _, p := range b.Preds {
			if reachable[p] {
				filteredPreds = append(filteredPreds, p)
			}
		}
		b.Preds = filteredPreds

		filteredSuccs := b.Succs[:0]
		for _, s := range b.Succs {
			if reachable[s] {
				filteredSuccs = append(filteredSuccs, s)
			}
		}
		b.Succs = filteredSuccs
	}
	return changed
}
