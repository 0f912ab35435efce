package optimizer

import (
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/source"
)

// ConstantFolding evaluates arithmetic/bitwise/comparison ops whose operands
// are both constants at compile time and replaces them with an OpConst,
// grounded on the Kanso optimizer's ConstantFolding pass (same "identify
// constants, then rewrite binary ops whose both operands are constant"
// two-step shape, adapted from Kanso's expression-tree IR to this package's
// flat three-address instruction stream).
type ConstantFolding struct{}

func (ConstantFolding) Name() string { return "constant-folding" }

func (p *ConstantFolding) Apply(fn *il.Function, diags *diag.Collector) bool {
	changed := false
	for _, b := range fn.CFG.Blocks {
		code := fn.Code[b.ID]
		for i, instr := range code {
			if isSequencePoint(instr) {
				continue
			}
			folded, ok := foldInstruction(instr, diags)
			if !ok {
				continue
			}
			code[i] = folded
			changed = true
		}
		fn.Code[b.ID] = code
	}
	return changed
}

func foldInstruction(instr il.Instruction, diags *diag.Collector) (il.Instruction, bool) {
	if len(instr.Args) != 2 {
		return instr, false
	}
	a, b := instr.Args[0], instr.Args[1]
	if a.Kind != il.ValueConstant || b.Kind != il.ValueConstant {
		return instr, false
	}
	result, ok := evalBinary(instr.Op, a.Const, b.Const, instr.Loc, diags)
	if !ok {
		return instr, false
	}
	return il.Instruction{Op: il.OpConst, Dest: instr.Dest, Args: []il.Value{il.Const(result, instr.Dest.Type)}, Loc: instr.Loc}, true
}

func evalBinary(op il.Opcode, a, b uint16, loc source.Location, diags *diag.Collector) (uint16, bool) {
	switch op {
	case il.OpAdd:
		return a + b, true
	case il.OpSub:
		return a - b, true
	case il.OpMul:
		return a * b, true
	case il.OpDiv:
		if b == 0 {
			if diags != nil {
				diags.Errorf(diag.DivisionByZero, loc, "division by constant zero")
			}
			return 0, false
		}
		return a / b, true
	case il.OpMod:
		if b == 0 {
			if diags != nil {
				diags.Errorf(diag.DivisionByZero, loc, "modulo by constant zero")
			}
			return 0, false
		}
		return a % b, true
	case il.OpAnd:
		return a & b, true
	case il.OpOr:
		return a | b, true
	case il.OpXor:
		return a ^ b, true
	case il.OpShl:
		return a << b, true
	case il.OpShr:
		return a >> b, true
	case il.OpCmpEq:
		return boolUint(a == b), true
	case il.OpCmpNe:
		return boolUint(a != b), true
	case il.OpCmpLt:
		return boolUint(a < b), true
	case il.OpCmpLe:
		return boolUint(a <= b), true
	case il.OpCmpGt:
		return boolUint(a > b), true
	case il.OpCmpGe:
		return boolUint(a >= b), true
	default:
		return 0, false
	}
}

func boolUint(v bool) uint16 {
	if v {
		return 1
	}
	return 0
}
