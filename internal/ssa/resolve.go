package ssa

import (
	"github.com/blend65/blend65/internal/cfg"
	"github.com/blend65/blend65/internal/il"
)

// ResolvePhis eliminates every phi node in fn by inserting an OpCopy into
// the end of each predecessor block (one per phi argument, written into the
// phi's own destination register) and deleting the OpPhi instructions
// themselves. This is the standard "out of SSA" lowering step: code
// generation has no runtime representation for a phi, so the value must
// already sit in the phi's destination location by the time control
// reaches the block that reads it.
//
// ResolvePhis must run after optimization and immediately before code
// generation. Once it runs, fn is no longer valid SSA — the same register
// can be written by more than one predecessor block — so ssa.Verify and any
// optimizer pass that assumes single-assignment must only ever see fn
// before this call, never after.
func ResolvePhis(fn *il.Function) {
	for _, block := range fn.CFG.Blocks {
		code := fn.Code[block.ID]
		var phis []il.Instruction
		var rest []il.Instruction
		for _, instr := range code {
			if instr.Op == il.OpPhi {
				phis = append(phis, instr)
				continue
			}
			rest = append(rest, instr)
		}
		if len(phis) == 0 {
			continue
		}
		fn.Code[block.ID] = rest

		preds := fn.CFG.Predecessors(block.ID)
		for _, phi := range phis {
			for i, pred := range preds {
				if i >= len(phi.Args) {
					continue
				}
				insertBeforeTerminator(fn, pred, il.Instruction{Op: il.OpCopy, Dest: phi.Dest, Args: []il.Value{phi.Args[i]}, Loc: phi.Loc})
			}
		}
	}
}

// insertBeforeTerminator inserts instr immediately before block's last
// instruction (every block's code ends in a terminator opcode).
func insertBeforeTerminator(fn *il.Function, block cfg.BlockID, instr il.Instruction) {
	code := fn.Code[block]
	if len(code) == 0 {
		fn.Code[block] = []il.Instruction{instr}
		return
	}
	last := len(code) - 1
	out := make([]il.Instruction, 0, len(code)+1)
	out = append(out, code[:last]...)
	out = append(out, instr)
	out = append(out, code[last])
	fn.Code[block] = out
}
