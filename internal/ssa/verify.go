package ssa

import (
	"fmt"

	"github.com/blend65/blend65/internal/cfg"
	"github.com/blend65/blend65/internal/il"
)

// Verify checks fn's structural SSA invariants after Promote: every register
// used as an instruction argument was defined by some earlier instruction on
// every path reaching the use (approximated here as "defined somewhere
// dominating the use, per the dominator tree"), and every OpPhi has exactly
// one incoming argument per predecessor of its block. Returns every
// violation found; a nil/empty result means fn is well-formed SSA.
func Verify(fn *il.Function, tree *DomTree) []error {
	var errs []error

	defBlock := map[il.Register]cfg.BlockID{}
	for _, block := range fn.CFG.Blocks {
		for _, instr := range fn.Code[block.ID] {
			if instr.Dest.Kind == il.ValueRegister {
				if _, ok := defBlock[instr.Dest.Reg]; ok {
					errs = append(errs, fmt.Errorf("register %%%d redefined in block %d", instr.Dest.Reg, block.ID))
					continue
				}
				defBlock[instr.Dest.Reg] = block.ID
			}
		}
	}

	for _, block := range fn.CFG.Blocks {
		for _, instr := range fn.Code[block.ID] {
			if instr.Op == il.OpPhi {
				want := len(fn.CFG.Predecessors(block.ID))
				if len(instr.Args) != want {
					errs = append(errs, fmt.Errorf("block %d: phi for %%%d has %d args, want %d (one per predecessor)", block.ID, instr.Dest.Reg, len(instr.Args), want))
				}
				continue // a phi's operands are live on entry, not dominance-checked per spec.md's join semantics
			}
			for _, arg := range instr.Args {
				if arg.Kind != il.ValueRegister {
					continue
				}
				db, ok := defBlock[arg.Reg]
				if !ok {
					errs = append(errs, fmt.Errorf("block %d: use of %%%d has no definition", block.ID, arg.Reg))
					continue
				}
				if db == block.ID {
					continue // same-block def-before-use ordering isn't checked here; instruction order guarantees it for non-phi code
				}
				if !tree.Dominates(db, block.ID) {
					errs = append(errs, fmt.Errorf("block %d: use of %%%d is not dominated by its definition in block %d", block.ID, arg.Reg, db))
				}
			}
		}
	}
	return errs
}
