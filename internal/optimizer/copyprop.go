package optimizer

import (
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
)

// CopyPropagation replaces uses of a register defined by an OpCopy (the
// alias internal/ssa's Promote inserts in place of a load from a promoted
// slot) with the copy's source value directly, letting the OpCopy
// instruction itself fall out as dead once DeadCodeElimination runs.
type CopyPropagation struct{}

func (CopyPropagation) Name() string { return "copy-propagation" }

func (p *CopyPropagation) Apply(fn *il.Function, _ *diag.Collector) bool {
	copies := map[il.Register]il.Value{}
	for _, b := range fn.CFG.Blocks {
		for _, instr := range fn.Code[b.ID] {
			if instr.Op == il.OpCopy && instr.Dest.Kind == il.ValueRegister && len(instr.Args) == 1 {
				copies[instr.Dest.Reg] = resolveCopyChain(copies, instr.Args[0])
			}
		}
	}
	if len(copies) == 0 {
		return false
	}

	changed := false
	for _, b := range fn.CFG.Blocks {
		code := fn.Code[b.ID]
		for i, instr := range code {
			newArgs := instr.Args
			cloned := false
			for j, arg := range instr.Args {
				if arg.Kind != il.ValueRegister {
					continue
				}
				if v, ok := copies[arg.Reg]; ok {
					if !cloned {
						newArgs = append([]il.Value(nil), instr.Args...)
						cloned = true
					}
					newArgs[j] = v
					changed = true
				}
			}
			code[i].Args = newArgs
		}
		fn.Code[b.ID] = code
	}
	return changed
}

func resolveCopyChain(copies map[il.Register]il.Value, v il.Value) il.Value {
	for v.Kind == il.ValueRegister {
		next, ok := copies[v.Reg]
		if !ok {
			break
		}
		v = next
	}
	return v
}
