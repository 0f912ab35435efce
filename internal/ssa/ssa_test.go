package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/types"
)

// buildDiamond builds:
//
//	entry -> head -> (then | else) -> join -> exit
//
// with a local slot stored on both branches and loaded in join, the
// textbook case that requires a phi node.
func buildDiamond(t *testing.T, tbl *types.Table) *il.Function {
	t.Helper()
	fn := il.NewFunction("pick", "m")
	byteT := tbl.Byte()
	slot := fn.NewRegister()

	head := fn.NewBlock("head")
	thenB := fn.NewBlock("then")
	elseB := fn.NewBlock("else")
	join := fn.NewBlock("join")

	fn.Terminate(fn.CFG.Entry, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(head)}})

	cond := fn.NewRegister()
	fn.Emit(head, il.Instruction{Op: il.OpConst, Dest: il.Reg(cond, tbl.Bool()), Args: []il.Value{il.Const(1, tbl.Bool())}})
	fn.Terminate(head, il.Instruction{Op: il.OpBranch, Args: []il.Value{il.Reg(cond, tbl.Bool()), il.Label(thenB), il.Label(elseB)}})

	fn.Emit(thenB, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, byteT), Args: []il.Value{il.Const(1, byteT)}})
	fn.Terminate(thenB, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(join)}})

	fn.Emit(elseB, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, byteT), Args: []il.Value{il.Const(2, byteT)}})
	fn.Terminate(elseB, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(join)}})

	result := fn.NewRegister()
	fn.Emit(join, il.Instruction{Op: il.OpLoad, Dest: il.Reg(result, byteT), Args: []il.Value{il.Reg(slot, byteT)}})
	fn.Terminate(join, il.Instruction{Op: il.OpReturn, Args: []il.Value{il.Reg(result, byteT)}})

	return fn
}

func TestBuildDomTree_DiamondImmediateDominators(t *testing.T) {
	tbl := types.NewTable()
	fn := buildDiamond(t, tbl)
	tree := BuildDomTree(fn.CFG)

	head, then, els, join := fn.CFG.Blocks[2].ID, fn.CFG.Blocks[3].ID, fn.CFG.Blocks[4].ID, fn.CFG.Blocks[5].ID

	idomHead, ok := tree.IDom(head)
	require.True(t, ok)
	assert.Equal(t, fn.CFG.Entry, idomHead)

	idomJoin, ok := tree.IDom(join)
	require.True(t, ok)
	assert.Equal(t, head, idomJoin, "join's idom is head, since neither then nor else dominates it alone")

	idomThen, _ := tree.IDom(then)
	assert.Equal(t, head, idomThen)
	idomElse, _ := tree.IDom(els)
	assert.Equal(t, head, idomElse)
}

func TestDominanceFrontier_JoinIsInBranchFrontiers(t *testing.T) {
	tbl := types.NewTable()
	fn := buildDiamond(t, tbl)
	tree := BuildDomTree(fn.CFG)
	df := DominanceFrontier(fn.CFG, tree)

	then, els, join := fn.CFG.Blocks[3].ID, fn.CFG.Blocks[4].ID, fn.CFG.Blocks[5].ID

	assert.True(t, df[then][join])
	assert.True(t, df[els][join])
}

func TestPromote_InsertsPhiAtJoinAndRemovesSlotTraffic(t *testing.T) {
	tbl := types.NewTable()
	fn := buildDiamond(t, tbl)
	join := fn.CFG.Blocks[5].ID
	thenB, elseB := fn.CFG.Blocks[3].ID, fn.CFG.Blocks[4].ID

	Promote(fn)

	for _, instr := range fn.Code[thenB] {
		assert.NotEqual(t, il.OpStore, instr.Op, "store to promoted slot should be removed")
	}
	for _, instr := range fn.Code[elseB] {
		assert.NotEqual(t, il.OpStore, instr.Op, "store to promoted slot should be removed")
	}

	require.NotEmpty(t, fn.Code[join])
	phi := fn.Code[join][0]
	require.Equal(t, il.OpPhi, phi.Op)
	assert.Len(t, phi.Args, 2)

	foundLoad := false
	for _, instr := range fn.Code[join] {
		if instr.Op == il.OpLoad {
			foundLoad = true
		}
	}
	assert.False(t, foundLoad, "load of promoted slot should become an OpCopy")
}

func TestVerify_PromotedDiamondIsWellFormed(t *testing.T) {
	tbl := types.NewTable()
	fn := buildDiamond(t, tbl)
	Promote(fn)
	tree := BuildDomTree(fn.CFG)
	errs := Verify(fn, tree)
	assert.Empty(t, errs)
}

func TestVerify_FlagsPhiWithWrongArgCount(t *testing.T) {
	tbl := types.NewTable()
	fn := buildDiamond(t, tbl)
	Promote(fn)
	join := fn.CFG.Blocks[5].ID
	fn.Code[join][0].Args = fn.Code[join][0].Args[:1]

	tree := BuildDomTree(fn.CFG)
	errs := Verify(fn, tree)
	require.NotEmpty(t, errs)
}

func TestPromote_AddressTakenSlotIsNotPromoted(t *testing.T) {
	tbl := types.NewTable()
	fn := il.NewFunction("addrtest", "m")
	byteT := tbl.Byte()
	slot := fn.NewRegister()
	body := fn.NewBlock("body")
	fn.Terminate(fn.CFG.Entry, il.Instruction{Op: il.OpJump, Args: []il.Value{il.Label(body)}})

	fn.Emit(body, il.Instruction{Op: il.OpStore, Dest: il.Reg(slot, byteT), Args: []il.Value{il.Const(0, byteT)}})
	ptr := fn.NewRegister()
	fn.Emit(body, il.Instruction{Op: il.OpAddrOf, Dest: il.Reg(ptr, tbl.Pointer(byteT)), Args: []il.Value{il.Reg(slot, byteT)}})
	fn.Terminate(body, il.Instruction{Op: il.OpReturnVoid})

	before := len(fn.Code[body])
	Promote(fn)
	assert.Len(t, fn.Code[body], before, "address-taken slot's store must survive promotion untouched")
}
