package codegen6502

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/types"
)

func returnConstantModule(tbl *types.Table) *il.Module {
	fn := il.NewFunction("main", "game")
	body := fn.NewBlock("body")
	fn.Terminate(fn.CFG.Entry, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(body)}})
	r := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpConst, Dest: il.Reg(r, tbl.Byte()), Args: []il.Value{il.Const(42, tbl.Byte())}})
	fn.Terminate(body, il.Instruction{Op: il.OpReturn, Args: []il.Value{il.Reg(r, tbl.Byte())}})
	return &il.Module{Name: "game", Functions: []*il.Function{fn}}
}

func TestGenerate_EmitsOriginAndFunctionLabel(t *testing.T) {
	tbl := types.NewTable()
	target, err := GetTarget("c64")
	require.NoError(t, err)
	gen := NewGenerator(tbl, diag.NewCollector(), target, ExitLoop)

	asm, sourceMap := gen.Generate(returnConstantModule(tbl))

	assert.Contains(t, asm, "* = $0801")
	assert.Contains(t, asm, "game_main:")
	assert.Contains(t, asm, "lda #$2A")
	assert.NotEmpty(t, sourceMap)
}

func TestGenerate_ExitBehaviorBasicJumpsToWarmStart(t *testing.T) {
	tbl := types.NewTable()
	target, _ := GetTarget("c64")
	gen := NewGenerator(tbl, diag.NewCollector(), target, ExitBasic)

	asm, _ := gen.Generate(returnConstantModule(tbl))
	assert.Contains(t, asm, "jmp $A474")
}

func TestGenerate_ExitBehaviorResetJumpsToSoftReset(t *testing.T) {
	tbl := types.NewTable()
	target, _ := GetTarget("c64")
	gen := NewGenerator(tbl, diag.NewCollector(), target, ExitReset)

	asm, _ := gen.Generate(returnConstantModule(tbl))
	assert.Contains(t, asm, "jmp $FCE2")
}

func TestGenerate_ExitBehaviorLoopSelfJumps(t *testing.T) {
	tbl := types.NewTable()
	target, _ := GetTarget("c64")
	gen := NewGenerator(tbl, diag.NewCollector(), target, ExitLoop)

	asm, _ := gen.Generate(returnConstantModule(tbl))
	assert.True(t, strings.Contains(asm, "exit_loop:"))
}

func TestGenerate_UnsupportedOpcodeReportsInternalDiagnostic(t *testing.T) {
	tbl := types.NewTable()
	fn := il.NewFunction("weird", "m")
	body := fn.NewBlock("body")
	fn.Terminate(fn.CFG.Entry, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(body)}})
	r := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.Opcode(999), Dest: il.Reg(r, tbl.Byte())})
	fn.Terminate(body, il.Instruction{Op: il.OpReturnVoid})
	mod := &il.Module{Name: "m", Functions: []*il.Function{fn}}

	target, _ := GetTarget("c64")
	diags := diag.NewCollector()
	gen := NewGenerator(tbl, diags, target, ExitLoop)
	gen.Generate(mod)

	assert.Equal(t, diag.SeverityInternal, diags.MaxSeverity())
}

func TestAllocator_ShortByteRegisterStaysInAccumulator(t *testing.T) {
	tbl := types.NewTable()
	fn := il.NewFunction("f", "m")
	body := fn.NewBlock("body")
	fn.Terminate(fn.CFG.Entry, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(body)}})
	a := fn.NewRegister()
	use := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpConst, Dest: il.Reg(a, tbl.Byte()), Args: []il.Value{il.Const(1, tbl.Byte())}})
	fn.Emit(body, il.Instruction{Op: il.OpAdd, Dest: il.Reg(use, tbl.Byte()), Args: []il.Value{il.Reg(a, tbl.Byte()), il.Const(1, tbl.Byte())}})
	fn.Terminate(body, il.Instruction{Op: il.OpReturn, Args: []il.Value{il.Reg(use, tbl.Byte())}})

	alloc := NewAllocator(tbl, 0x02, 0xC000)
	locs := alloc.Allocate(fn)
	require.Contains(t, locs, a)
	assert.True(t, locs[a].IsRegister())
}

func TestParseExitBehaviorStrict_RejectsUnknownValue(t *testing.T) {
	_, err := ParseExitBehaviorStrict("frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid values")
}

func TestParseExitBehaviorStrict_AcceptsKnownValues(t *testing.T) {
	for _, s := range []string{"", "loop", "basic", "reset"} {
		_, err := ParseExitBehaviorStrict(s)
		assert.NoError(t, err)
	}
}
