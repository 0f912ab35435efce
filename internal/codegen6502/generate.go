package codegen6502

import (
	"fmt"

	"github.com/blend65/blend65/internal/cfg"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/intrinsics"
	"github.com/blend65/blend65/internal/source"
	"github.com/blend65/blend65/internal/types"
)

// Generator lowers one compiled il.Module to ACME-syntax 6502 assembly for
// a Target, grounded on the teacher's M6502Backend.Generate/generateFunction
// shape (header comment, globals data section, one label per function,
// straight-line instruction-by-instruction lowering, helper routines),
// generalized from the teacher's placeholder-comment style lowering to a
// real opcode-by-opcode translation over this module's own IL.
type Generator struct {
	Types  *types.Table
	Diags  *diag.Collector
	Target Target
	Exit   ExitBehavior
}

func NewGenerator(tbl *types.Table, diags *diag.Collector, target Target, exit ExitBehavior) *Generator {
	return &Generator{Types: tbl, Diags: diags, Target: target, Exit: exit}
}

// Generate emits assembly for every function and global in mod, returning
// the assembly text and its source map.
func (g *Generator) Generate(mod *il.Module) (string, []SourceMapEntry) {
	b := NewBuilder()
	b.Line("; Blend65 generated code for module %s", mod.Name)
	b.Line("    * = $%04X", g.Target.Origin())
	b.Line("")

	if len(mod.Globals) > 0 {
		b.Line("; Global variables")
		for _, gv := range mod.Globals {
			g.emitGlobal(b, gv)
		}
		b.Line("")
	}

	for _, fn := range mod.Functions {
		g.generateFunction(b, fn)
		b.Line("")
	}

	return b.String(), b.SourceMap()
}

func (g *Generator) emitGlobal(b *Builder, gv *il.GlobalVariable) {
	size := g.Types.Get(gv.Type).Size
	if size <= 0 {
		size = 1
	}
	qualified := qualifiedName(gv.Module, gv.Name)
	if len(gv.InitValue) > 0 {
		b.Line("%s:", qualified)
		for _, v := range gv.InitValue {
			b.Line("    !byte $%02X", v&0xFF)
		}
		return
	}
	b.Line("%s: !fill %d, 0", qualified, size)
}

func qualifiedName(module, name string) string {
	return module + "_" + name
}

// generateFunction lowers one function's blocks in CFG order, emitting a
// label per block, then ends main with the configured exit sequence
// (emitExit) and every other function with rts.
func (g *Generator) generateFunction(b *Builder, fn *il.Function) {
	qualified := qualifiedName(fn.Module, fn.Name)
	b.Line("; Function: %s", qualified)
	b.Label(qualified)

	alloc := NewAllocator(g.Types, 0x02, 0xC000)
	locs := alloc.Allocate(fn)
	lower := &functionLowering{g: g, fn: fn, b: b, locs: locs}

	for _, block := range fn.CFG.Blocks {
		if block.ID == fn.CFG.Entry || block.ID == fn.CFG.Exit {
			continue
		}
		b.Label(blockLabel(fn, block.ID))
		for _, instr := range fn.Code[block.ID] {
			lower.instr(instr)
		}
	}

	if fn.Name == "main" {
		g.emitExit(b)
	} else {
		b.Emit(source.Location{}, fn.Name, "rts")
	}
}

func (g *Generator) emitExit(b *Builder) {
	switch g.Exit {
	case ExitBasic:
		b.Emit(source.Location{}, "", "jmp $%04X", g.Target.BasicWarmStart())
	case ExitReset:
		b.Emit(source.Location{}, "", "jmp $%04X", g.Target.SoftReset())
	default:
		loopLabel := "exit_loop"
		b.Label(loopLabel)
		b.Emit(source.Location{}, "", "jmp %s", loopLabel)
	}
}

func blockLabel(fn *il.Function, id cfg.BlockID) string {
	return fmt.Sprintf("%s_block%d", qualifiedName(fn.Module, fn.Name), id)
}

// functionLowering holds the per-function state the instruction-by-
// instruction translation needs: the register allocation and a reference
// back to the function for block-label lookups.
type functionLowering struct {
	g    *Generator
	fn   *il.Function
	b    *Builder
	locs map[il.Register]Location
}

func (l *functionLowering) operand(v il.Value) string {
	switch v.Kind {
	case il.ValueConstant:
		return fmt.Sprintf("#$%02X", v.Const&0xFF)
	case il.ValueGlobal:
		return v.Global
	case il.ValueRegister:
		loc, ok := l.locs[v.Reg]
		if !ok {
			return fmt.Sprintf("r%d", v.Reg)
		}
		if loc.IsRegister() {
			return string(loc.InReg)
		}
		return fmt.Sprintf("$%04X", loc.Address)
	default:
		return "?"
	}
}

func (l *functionLowering) store(dest il.Value, loc source.Location, symbol string) {
	if dest.Kind != il.ValueRegister {
		return
	}
	target, ok := l.locs[dest.Reg]
	if !ok || target.IsRegister() {
		return // already in the accumulator
	}
	l.b.Emit(loc, symbol, "sta $%04X", target.Address)
}

func (l *functionLowering) instr(instr il.Instruction) {
	switch instr.Op {
	case il.OpConst:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")

	case il.OpLoad:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")

	case il.OpStore:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "sta %s", l.operand(instr.Dest))

	case il.OpCopy:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")

	case il.OpAdd:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "clc")
		l.b.Emit(instr.Loc, "", "adc %s", l.operand(instr.Args[1]))
		l.store(instr.Dest, instr.Loc, "")

	case il.OpSub:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "sec")
		l.b.Emit(instr.Loc, "", "sbc %s", l.operand(instr.Args[1]))
		l.store(instr.Dest, instr.Loc, "")

	case il.OpAnd:
		l.binaryBitwise(instr, "and")
	case il.OpOr:
		l.binaryBitwise(instr, "ora")
	case il.OpXor:
		l.binaryBitwise(instr, "eor")

	case il.OpShl:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "asl a")
		l.store(instr.Dest, instr.Loc, "")
	case il.OpShr:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "lsr a")
		l.store(instr.Dest, instr.Loc, "")

	case il.OpNeg:
		l.b.Emit(instr.Loc, "", "lda #$00")
		l.b.Emit(instr.Loc, "", "sec")
		l.b.Emit(instr.Loc, "", "sbc %s", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")
	case il.OpBitNot, il.OpNot:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "eor #$FF")
		l.store(instr.Dest, instr.Loc, "")

	case il.OpCmpEq, il.OpCmpNe, il.OpCmpLt, il.OpCmpLe, il.OpCmpGt, il.OpCmpGe:
		l.compare(instr)

	case il.OpZeroExtend, il.OpTruncate, il.OpBoolToByte, il.OpByteToBool:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")

	case il.OpAddrOf:
		l.b.Emit(instr.Loc, "", "lda #<%s", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")

	case il.OpMapLoadField:
		l.b.Emit(instr.Loc, "", "lda %s+%d", l.operand(instr.Args[0]), instr.Args[1].Const)
		l.store(instr.Dest, instr.Loc, "")
	case il.OpMapStoreField:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[2]))
		l.b.Emit(instr.Loc, "", "sta %s+%d", l.operand(instr.Args[0]), instr.Args[1].Const)
	case il.OpMapLoadRange:
		l.b.Emit(instr.Loc, "", "ldy %s", l.operand(instr.Args[2]))
		l.b.Emit(instr.Loc, "", "lda %s+%d,y", l.operand(instr.Args[0]), instr.Args[1].Const)
		l.store(instr.Dest, instr.Loc, "")
	case il.OpMapStoreRange:
		l.b.Emit(instr.Loc, "", "ldy %s", l.operand(instr.Args[2]))
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[3]))
		l.b.Emit(instr.Loc, "", "sta %s+%d,y", l.operand(instr.Args[0]), instr.Args[1].Const)

	case il.OpLoadIndex:
		l.b.Emit(instr.Loc, "", "ldy %s", l.operand(instr.Args[1]))
		l.b.Emit(instr.Loc, "", "lda %s,y", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")
	case il.OpStoreIndex:
		l.b.Emit(instr.Loc, "", "ldy %s", l.operand(instr.Args[1]))
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[2]))
		l.b.Emit(instr.Loc, "", "sta %s,y", l.operand(instr.Args[0]))

	case il.OpPeek:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")
	case il.OpPoke:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[1]))
		l.b.Emit(instr.Loc, "", "sta %s", l.operand(instr.Args[0]))

	case il.OpCall:
		l.b.Emit(instr.Loc, instr.Callee, "jsr %s", instr.Callee)
		l.store(instr.Dest, instr.Loc, instr.Callee)

	case il.OpIntrinsicCall:
		l.intrinsicCall(instr)

	case il.OpPhi:
		// ssa.ResolvePhis must run before code generation and removes every
		// phi, replacing it with copies in each predecessor block; reaching
		// here means that step was skipped.
		l.g.Diags.Internalf(diag.UnsupportedOpcode, instr.Loc, "unresolved phi for register %%%d reached code generation", instr.Dest.Reg)

	case il.OpJump:
		l.b.Emit(instr.Loc, "", "jmp %s", blockLabel(l.fn, instr.Args[0].Block))

	case il.OpBranch:
		l.branch(instr)

	case il.OpReturn:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "rts")
	case il.OpReturnVoid:
		l.b.Emit(instr.Loc, "", "rts")

	case il.OpBarrier:
		l.b.Comment("barrier")

	default:
		l.g.Diags.Internalf(diag.UnsupportedOpcode, instr.Loc, "unsupported IL opcode %d in code generation", instr.Op)
	}
}

func (l *functionLowering) binaryBitwise(instr il.Instruction, mnemonic string) {
	l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
	l.b.Emit(instr.Loc, "", "%s %s", mnemonic, l.operand(instr.Args[1]))
	l.store(instr.Dest, instr.Loc, "")
}

// compare lowers to a compare-and-branch sequence: cmp sets the zero and
// carry flags from lhs - rhs (leaving the accumulator unchanged), and the
// 0/1 materialization uses the matching conditional branch plus a
// two-instruction patch, the standard 6502 idiom the teacher's codegen
// family uses for boolean results. Le adds a beq to the true path and Gt a
// beq to the false path, since the carry flag alone does not separate
// "equal" from "greater".
func (l *functionLowering) compare(instr il.Instruction) {
	l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
	l.b.Emit(instr.Loc, "", "cmp %s", l.operand(instr.Args[1]))
	branchOp := map[il.Opcode]string{
		il.OpCmpEq: "beq", il.OpCmpNe: "bne",
		il.OpCmpLt: "bcc", il.OpCmpGe: "bcs",
		il.OpCmpLe: "bcc", il.OpCmpGt: "bcs",
	}[instr.Op]
	trueLabel := fmt.Sprintf("cmp_true_%d", instr.Dest.Reg)
	falseLabel := fmt.Sprintf("cmp_false_%d", instr.Dest.Reg)
	doneLabel := fmt.Sprintf("cmp_done_%d", instr.Dest.Reg)
	switch instr.Op {
	case il.OpCmpLe:
		l.b.Emit(instr.Loc, "", "beq %s", trueLabel)
	case il.OpCmpGt:
		l.b.Emit(instr.Loc, "", "beq %s", falseLabel)
	}
	l.b.Emit(instr.Loc, "", "%s %s", branchOp, trueLabel)
	if instr.Op == il.OpCmpGt {
		l.b.Label(falseLabel)
	}
	l.b.Emit(instr.Loc, "", "lda #$00")
	l.b.Emit(instr.Loc, "", "jmp %s", doneLabel)
	l.b.Label(trueLabel)
	l.b.Emit(instr.Loc, "", "lda #$01")
	l.b.Label(doneLabel)
	l.store(instr.Dest, instr.Loc, "")
}

// branch lowers a conditional jump as "lda cond / cmp #$00 / beq else /
// jmp then", whatever the blocks' emission order: the jmp is emitted even
// when the then-block follows directly, and the beq is always a short
// branch, which reaches only ±127 bytes; no "BXX +3 / JMP target" long form
// is emitted for a more distant else-block.
func (l *functionLowering) branch(instr il.Instruction) {
	cond := l.operand(instr.Args[0])
	thenLabel := blockLabel(l.fn, instr.Args[1].Block)
	elseLabel := blockLabel(l.fn, instr.Args[2].Block)
	l.b.Emit(instr.Loc, "", "lda %s", cond)
	l.b.Emit(instr.Loc, "", "cmp #$00")
	l.b.Emit(instr.Loc, "", "beq %s", elseLabel)
	l.b.Emit(instr.Loc, "", "jmp %s", thenLabel)
}

// intrinsicCall lowers every registered intrinsic per spec.md §4.7's 1:1
// mapping table.
func (l *functionLowering) intrinsicCall(instr il.Instruction) {
	switch intrinsics.Name(instr.Callee) {
	case intrinsics.Peek:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")
	case intrinsics.Poke:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[1]))
		l.b.Emit(instr.Loc, "", "sta %s", l.operand(instr.Args[0]))
	case intrinsics.PeekWord:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "lda %s+1", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")
	case intrinsics.PokeWord:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[1]))
		l.b.Emit(instr.Loc, "", "sta %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "lda %s+1", l.operand(instr.Args[1]))
		l.b.Emit(instr.Loc, "", "sta %s+1", l.operand(instr.Args[0]))
	case intrinsics.Lo:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")
	case intrinsics.Hi:
		l.b.Emit(instr.Loc, "", "lda %s+1", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")
	case intrinsics.PushA:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[0]))
		l.b.Emit(instr.Loc, "", "pha")
	case intrinsics.PopA:
		l.b.Emit(instr.Loc, "", "pla")
		l.store(instr.Dest, instr.Loc, "")
	case intrinsics.PushStatus:
		l.b.Emit(instr.Loc, "", "php")
	case intrinsics.PopStatus:
		l.b.Emit(instr.Loc, "", "plp")
	case intrinsics.DisableIRQ:
		l.b.Emit(instr.Loc, "", "sei")
	case intrinsics.EnableIRQ:
		l.b.Emit(instr.Loc, "", "cli")
	case intrinsics.NoOp:
		l.b.Emit(instr.Loc, "", "nop")
	case intrinsics.ForceBreak:
		l.b.Emit(instr.Loc, "", "brk")
	case intrinsics.Barrier:
		l.b.Comment("barrier")
	case intrinsics.VolatileRead:
		l.b.Emit(instr.Loc, "", "lda %s  ; volatile, no-merge", l.operand(instr.Args[0]))
		l.store(instr.Dest, instr.Loc, "")
	case intrinsics.VolatileWrite:
		l.b.Emit(instr.Loc, "", "lda %s", l.operand(instr.Args[1]))
		l.b.Emit(instr.Loc, "", "sta %s  ; volatile, no-merge", l.operand(instr.Args[0]))
	case intrinsics.Length, intrinsics.SizeOf:
		l.b.Emit(instr.Loc, "", "lda #$%02X", instr.Args[0].Const&0xFF)
		l.store(instr.Dest, instr.Loc, "")
	default:
		l.g.Diags.Internalf(diag.UnsupportedOpcode, instr.Loc, "unsupported intrinsic %q in code generation", instr.Callee)
	}
}
