package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/types"
)

func simpleFunction(tbl *types.Table) *il.Function {
	fn := il.NewFunction("f", "m")
	body := fn.NewBlock("body")
	fn.Terminate(fn.CFG.Entry, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(body)}})
	return fn
}

func TestConstantFolding_FoldsAddOfTwoConstants(t *testing.T) {
	tbl := types.NewTable()
	fn := simpleFunction(tbl)
	body := fn.CFG.Blocks[2].ID
	dst := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpAdd, Dest: il.Reg(dst, tbl.Byte()), Args: []il.Value{il.Const(2, tbl.Byte()), il.Const(3, tbl.Byte())}})
	fn.Terminate(body, il.Instruction{Op: il.OpReturn, Args: []il.Value{il.Reg(dst, tbl.Byte())}})

	diags := diag.NewCollector()
	changed := (&ConstantFolding{}).Apply(fn, diags)
	require.True(t, changed)
	assert.Equal(t, il.OpConst, fn.Code[body][0].Op)
	assert.Equal(t, uint16(5), fn.Code[body][0].Args[0].Const)
	assert.False(t, diags.HasErrors())
}

func TestConstantFolding_DivisionByZeroReportsDiagnostic(t *testing.T) {
	tbl := types.NewTable()
	fn := simpleFunction(tbl)
	body := fn.CFG.Blocks[2].ID
	dst := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpDiv, Dest: il.Reg(dst, tbl.Byte()), Args: []il.Value{il.Const(4, tbl.Byte()), il.Const(0, tbl.Byte())}})
	fn.Terminate(body, il.Instruction{Op: il.OpReturn, Args: []il.Value{il.Reg(dst, tbl.Byte())}})

	diags := diag.NewCollector()
	(&ConstantFolding{}).Apply(fn, diags)
	assert.True(t, diags.HasErrors())
}

func TestDeadCodeElimination_RemovesUnusedPureInstruction(t *testing.T) {
	tbl := types.NewTable()
	fn := simpleFunction(tbl)
	body := fn.CFG.Blocks[2].ID
	dead := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpAdd, Dest: il.Reg(dead, tbl.Byte()), Args: []il.Value{il.Const(1, tbl.Byte()), il.Const(1, tbl.Byte())}})
	fn.Terminate(body, il.Instruction{Op: il.OpReturnVoid})

	changed := (&DeadCodeElimination{}).Apply(fn, diag.NewCollector())
	require.True(t, changed)
	assert.Len(t, fn.Code[body], 1) // only the terminator remains
}

func TestDeadCodeElimination_KeepsBarrierEvenIfUnused(t *testing.T) {
	tbl := types.NewTable()
	fn := simpleFunction(tbl)
	body := fn.CFG.Blocks[2].ID
	fn.Emit(body, il.Instruction{Op: il.OpBarrier})
	fn.Terminate(body, il.Instruction{Op: il.OpReturnVoid})

	(&DeadCodeElimination{}).Apply(fn, diag.NewCollector())
	require.Len(t, fn.Code[body], 2)
	assert.Equal(t, il.OpBarrier, fn.Code[body][0].Op)
}

func TestDeadCodeElimination_KeepsRasterCriticalEvenIfUnused(t *testing.T) {
	tbl := types.NewTable()
	fn := simpleFunction(tbl)
	body := fn.CFG.Blocks[2].ID
	unused := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpAdd, Dest: il.Reg(unused, tbl.Byte()), Args: []il.Value{il.Const(1, tbl.Byte()), il.Const(1, tbl.Byte())}, RasterCritical: true})
	fn.Terminate(body, il.Instruction{Op: il.OpReturnVoid})

	(&DeadCodeElimination{}).Apply(fn, diag.NewCollector())
	require.Len(t, fn.Code[body], 2)
}

func TestCopyPropagation_ResolvesChainToOriginalValue(t *testing.T) {
	tbl := types.NewTable()
	fn := simpleFunction(tbl)
	body := fn.CFG.Blocks[2].ID
	orig := fn.NewRegister()
	copy1 := fn.NewRegister()
	use := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpConst, Dest: il.Reg(orig, tbl.Byte()), Args: []il.Value{il.Const(7, tbl.Byte())}})
	fn.Emit(body, il.Instruction{Op: il.OpCopy, Dest: il.Reg(copy1, tbl.Byte()), Args: []il.Value{il.Reg(orig, tbl.Byte())}})
	fn.Emit(body, il.Instruction{Op: il.OpAdd, Dest: il.Reg(use, tbl.Byte()), Args: []il.Value{il.Reg(copy1, tbl.Byte()), il.Const(1, tbl.Byte())}})
	fn.Terminate(body, il.Instruction{Op: il.OpReturn, Args: []il.Value{il.Reg(use, tbl.Byte())}})

	changed := (&CopyPropagation{}).Apply(fn, diag.NewCollector())
	require.True(t, changed)
	addInstr := fn.Code[body][2]
	assert.Equal(t, orig, addInstr.Args[0].Reg)
}

func TestCommonSubexpressionElimination_DedupsIdenticalAdd(t *testing.T) {
	tbl := types.NewTable()
	fn := simpleFunction(tbl)
	body := fn.CFG.Blocks[2].ID
	p := fn.NewRegister()
	first := fn.NewRegister()
	second := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpConst, Dest: il.Reg(p, tbl.Byte()), Args: []il.Value{il.Const(9, tbl.Byte())}})
	fn.Emit(body, il.Instruction{Op: il.OpAdd, Dest: il.Reg(first, tbl.Byte()), Args: []il.Value{il.Reg(p, tbl.Byte()), il.Const(1, tbl.Byte())}})
	fn.Emit(body, il.Instruction{Op: il.OpAdd, Dest: il.Reg(second, tbl.Byte()), Args: []il.Value{il.Reg(p, tbl.Byte()), il.Const(1, tbl.Byte())}})
	fn.Terminate(body, il.Instruction{Op: il.OpReturn, Args: []il.Value{il.Reg(second, tbl.Byte())}})

	changed := (&CommonSubexpressionElimination{}).Apply(fn, diag.NewCollector())
	require.True(t, changed)
	assert.Equal(t, il.OpCopy, fn.Code[body][2].Op)
	assert.Equal(t, first, fn.Code[body][2].Args[0].Reg)
}

func TestPipeline_RunFoldsPropagatesAndEliminates(t *testing.T) {
	tbl := types.NewTable()
	fn := simpleFunction(tbl)
	body := fn.CFG.Blocks[2].ID
	a := fn.NewRegister()
	b := fn.NewRegister()
	sum := fn.NewRegister()
	unused := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpConst, Dest: il.Reg(a, tbl.Byte()), Args: []il.Value{il.Const(2, tbl.Byte())}})
	fn.Emit(body, il.Instruction{Op: il.OpConst, Dest: il.Reg(b, tbl.Byte()), Args: []il.Value{il.Const(3, tbl.Byte())}})
	fn.Emit(body, il.Instruction{Op: il.OpAdd, Dest: il.Reg(sum, tbl.Byte()), Args: []il.Value{il.Reg(a, tbl.Byte()), il.Reg(b, tbl.Byte())}})
	fn.Emit(body, il.Instruction{Op: il.OpMul, Dest: il.Reg(unused, tbl.Byte()), Args: []il.Value{il.Const(9, tbl.Byte()), il.Const(9, tbl.Byte())}})
	fn.Terminate(body, il.Instruction{Op: il.OpReturn, Args: []il.Value{il.Reg(sum, tbl.Byte())}})

	NewPipeline().Run(fn, diag.NewCollector())

	for _, instr := range fn.Code[body] {
		assert.NotEqual(t, unused, instr.Dest.Reg, "dead multiply should have been eliminated")
	}
}
