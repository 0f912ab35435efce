package optimizer

import (
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
)

// DeadCodeElimination removes instructions whose result is never used and
// which have no side effect, grounded on the Kanso optimizer's
// DeadCodeElimination pass (mark-used-values then drop unused, side-effect-
// free instructions), adapted here to also respect raster-critical sequence
// points: an OpBarrier, a RasterCritical-flagged instruction, or any
// instruction with a genuine side effect (store, call, intrinsic call,
// control flow) is always kept regardless of whether its result is used.
type DeadCodeElimination struct{}

func (DeadCodeElimination) Name() string { return "dead-code-elimination" }

func (p *DeadCodeElimination) Apply(fn *il.Function, _ *diag.Collector) bool {
	used := map[il.Register]bool{}
	for _, b := range fn.CFG.Blocks {
		for _, instr := range fn.Code[b.ID] {
			for _, arg := range instr.Args {
				if arg.Kind == il.ValueRegister {
					used[arg.Reg] = true
				}
			}
		}
	}

	changed := false
	for _, b := range fn.CFG.Blocks {
		code := fn.Code[b.ID]
		kept := code[:0]
		for _, instr := range code {
			if p.shouldKeep(instr, used) {
				kept = append(kept, instr)
				continue
			}
			changed = true
		}
		fn.Code[b.ID] = kept
	}
	return changed
}

func (p *DeadCodeElimination) shouldKeep(instr il.Instruction, used map[il.Register]bool) bool {
	if hasSideEffect(instr) {
		return true
	}
	if instr.Dest.Kind != il.ValueRegister {
		return true // defensive: no result to check liveness of
	}
	return used[instr.Dest.Reg]
}
