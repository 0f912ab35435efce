package optimizer

import (
	"fmt"

	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
)

// CommonSubexpressionElimination finds, within each basic block, repeated
// pure computations with identical opcode and operands and rewrites later
// occurrences into a copy of the first, grounded on the Kanso optimizer's
// CommonSubexpressionElimination pass (there specialized to duplicate
// sender() calls; generalized here to any pure opcode via a value-numbering
// key instead of a single hardcoded instruction kind). Scoped to a single
// block: a value computed in one block is not assumed safe to reuse in a
// dominated block without the optimizer's own aliasing/mutation analysis,
// which this pass doesn't attempt.
type CommonSubexpressionElimination struct{}

func (CommonSubexpressionElimination) Name() string { return "common-subexpression-elimination" }

func (p *CommonSubexpressionElimination) Apply(fn *il.Function, _ *diag.Collector) bool {
	changed := false
	for _, b := range fn.CFG.Blocks {
		code := fn.Code[b.ID]
		seen := map[string]il.Value{}
		for i, instr := range code {
			if !isPure(instr) || instr.Dest.Kind != il.ValueRegister {
				continue
			}
			key := valueNumberKey(instr)
			if prior, ok := seen[key]; ok {
				code[i] = il.Instruction{Op: il.OpCopy, Dest: instr.Dest, Args: []il.Value{prior}, Loc: instr.Loc}
				changed = true
				continue
			}
			seen[key] = instr.Dest
		}
		fn.Code[b.ID] = code
	}
	return changed
}

// isPure reports whether instr's result depends only on its operands, with
// no observable side effect and no dependence on mutable memory, so a
// repeated occurrence with identical operands is guaranteed to recompute
// the same value.
func isPure(instr il.Instruction) bool {
	switch instr.Op {
	case il.OpAdd, il.OpSub, il.OpMul, il.OpDiv, il.OpMod,
		il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpShr,
		il.OpNeg, il.OpNot, il.OpBitNot,
		il.OpCmpEq, il.OpCmpNe, il.OpCmpLt, il.OpCmpLe, il.OpCmpGt, il.OpCmpGe,
		il.OpZeroExtend, il.OpTruncate, il.OpBoolToByte, il.OpByteToBool:
		return true
	default:
		return false
	}
}

func valueNumberKey(instr il.Instruction) string {
	key := fmt.Sprintf("%d", instr.Op)
	for _, a := range instr.Args {
		key += "|" + a.String()
	}
	return key
}
