package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/types"
)

func TestResolvePhis_InsertsCopyIntoEachPredecessorAndRemovesPhi(t *testing.T) {
	tbl := types.NewTable()
	fn := buildDiamond(t, tbl)
	Promote(fn)

	thenB, elseB, join := fn.CFG.Blocks[3].ID, fn.CFG.Blocks[4].ID, fn.CFG.Blocks[5].ID

	var phiDest il.Register
	found := false
	for _, instr := range fn.Code[join] {
		if instr.Op == il.OpPhi {
			phiDest = instr.Dest.Reg
			found = true
		}
	}
	assert.True(t, found, "expected Promote to place a phi at the join block")

	ResolvePhis(fn)

	for _, instr := range fn.Code[join] {
		assert.NotEqual(t, il.OpPhi, instr.Op, "ResolvePhis should remove every phi")
	}

	hasCopyInto := func(blockCode []il.Instruction, dest il.Register) bool {
		for _, instr := range blockCode {
			if instr.Op == il.OpCopy && instr.Dest.Kind == il.ValueRegister && instr.Dest.Reg == dest {
				return true
			}
		}
		return false
	}

	assert.True(t, hasCopyInto(fn.Code[thenB], phiDest), "then-branch must copy its value into the phi's destination before jumping to join")
	assert.True(t, hasCopyInto(fn.Code[elseB], phiDest), "else-branch must copy its value into the phi's destination before jumping to join")
}

func TestResolvePhis_CopyPrecedesTerminatorInPredecessorBlock(t *testing.T) {
	tbl := types.NewTable()
	fn := buildDiamond(t, tbl)
	Promote(fn)
	ResolvePhis(fn)

	thenB := fn.CFG.Blocks[3].ID
	code := fn.Code[thenB]
	assert.NotEmpty(t, code)
	last := code[len(code)-1]
	assert.Equal(t, il.OpJump, last.Op, "the terminator must remain the last instruction in the block")

	sawCopy := false
	for _, instr := range code[:len(code)-1] {
		if instr.Op == il.OpCopy {
			sawCopy = true
		}
	}
	assert.True(t, sawCopy, "the inserted copy must precede the terminator")
}
