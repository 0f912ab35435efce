package optimizer

import (
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
)

// ConstantPropagation replaces uses of a register whose only definition is
// an OpConst with that constant directly, so a later ConstantFolding pass
// can fold an expression like `%1 = 2; %2 = 3; %3 = add %1, %2` down to a
// single OpConst over successive pipeline iterations.
type ConstantPropagation struct{}

func (ConstantPropagation) Name() string { return "constant-propagation" }

func (p *ConstantPropagation) Apply(fn *il.Function, _ *diag.Collector) bool {
	consts := map[il.Register]il.Value{}
	for _, b := range fn.CFG.Blocks {
		for _, instr := range fn.Code[b.ID] {
			if instr.Op == il.OpConst && instr.Dest.Kind == il.ValueRegister && len(instr.Args) == 1 {
				consts[instr.Dest.Reg] = instr.Args[0]
			}
		}
	}
	if len(consts) == 0 {
		return false
	}

	changed := false
	for _, b := range fn.CFG.Blocks {
		code := fn.Code[b.ID]
		for i, instr := range code {
			if instr.Op == il.OpConst || instr.Op == il.OpPhi {
				continue // a phi's operands are per-predecessor; substituting here would lose that shape
			}
			newArgs := instr.Args
			cloned := false
			for j, arg := range instr.Args {
				if arg.Kind != il.ValueRegister {
					continue
				}
				if c, ok := consts[arg.Reg]; ok {
					if !cloned {
						newArgs = append([]il.Value(nil), instr.Args...)
						cloned = true
					}
					newArgs[j] = c
					changed = true
				}
			}
			code[i].Args = newArgs
		}
		fn.Code[b.ID] = code
	}
	return changed
}
