package ssa

import (
	"github.com/blend65/blend65/internal/cfg"
	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/types"
)

// Promote rewrites fn's mem2reg-style local-variable load/store traffic into
// true SSA form: phi placement at dominance-frontier join points (worklist
// algorithm) followed by dominator-tree-order renaming with per-variable
// version stacks, per spec.md §4.5. Slots whose address was taken
// (il.OpAddrOf) are left as ordinary memory locations, since SSA values have
// no address.
func Promote(fn *il.Function) {
	tree := BuildDomTree(fn.CFG)
	frontier := DominanceFrontier(fn.CFG, tree)
	slots, slotTypes := promotableSlots(fn)
	if len(slots) == 0 {
		return
	}

	defs := definitionBlocks(fn, slots)
	phis := placePhis(fn, slots, slotTypes, defs, frontier)
	renameSlots(fn, tree, slots, phis)
}

// promotableSlots returns every register used as the Dest of an OpStore
// (i.e. treated as a named local rather than a one-shot SSA value),
// excluding any register whose address was taken via OpAddrOf, along with
// each slot's declared type (taken from the stored value's type).
func promotableSlots(fn *il.Function) (map[il.Register]bool, map[il.Register]types.ID) {
	stored := map[il.Register]bool{}
	slotTypes := map[il.Register]types.ID{}
	addressTaken := map[il.Register]bool{}
	for _, block := range fn.CFG.Blocks {
		for _, instr := range fn.Code[block.ID] {
			if instr.Op == il.OpStore && instr.Dest.Kind == il.ValueRegister {
				stored[instr.Dest.Reg] = true
				if len(instr.Args) == 1 {
					slotTypes[instr.Dest.Reg] = instr.Args[0].Type
				}
			}
			if instr.Op == il.OpAddrOf && len(instr.Args) == 1 && instr.Args[0].Kind == il.ValueRegister {
				addressTaken[instr.Args[0].Reg] = true
			}
		}
	}
	for r := range addressTaken {
		delete(stored, r)
	}
	return stored, slotTypes
}

func definitionBlocks(fn *il.Function, slots map[il.Register]bool) map[il.Register]map[cfg.BlockID]bool {
	defs := map[il.Register]map[cfg.BlockID]bool{}
	for r := range slots {
		defs[r] = map[cfg.BlockID]bool{}
	}
	for _, block := range fn.CFG.Blocks {
		for _, instr := range fn.Code[block.ID] {
			if instr.Op == il.OpStore && instr.Dest.Kind == il.ValueRegister && slots[instr.Dest.Reg] {
				defs[instr.Dest.Reg][block.ID] = true
			}
		}
	}
	return defs
}

// phiSite identifies the phi node for slot Reg placed in block Block.
type phiSite struct {
	reg   il.Register
	block cfg.BlockID
}

// placePhis runs the standard iterated-dominance-frontier worklist
// algorithm: for each slot, starting from its definition blocks, add it to
// the frontier of every block already carrying it until the set stops
// growing.
func placePhis(fn *il.Function, slots map[il.Register]bool, slotTypes map[il.Register]types.ID, defs map[il.Register]map[cfg.BlockID]bool, frontier map[cfg.BlockID]map[cfg.BlockID]bool) map[phiSite]il.Value {
	phis := map[phiSite]il.Value{}
	for r := range slots {
		hasPhi := map[cfg.BlockID]bool{}
		worklist := make([]cfg.BlockID, 0, len(defs[r]))
		for b := range defs[r] {
			worklist = append(worklist, b)
		}
		for len(worklist) > 0 {
			n := len(worklist) - 1
			b := worklist[n]
			worklist = worklist[:n]
			for df := range frontier[b] {
				if hasPhi[df] {
					continue
				}
				hasPhi[df] = true
				dst := il.Reg(fn.NewRegister(), slotTypes[r])
				phis[phiSite{reg: r, block: df}] = dst
				worklist = append(worklist, df)
			}
		}
	}
	return phis
}

// renameSlots walks the dominator tree in preorder, maintaining a
// per-variable stack of the current SSA value, rewriting each OpLoad of a
// promoted slot into an OpCopy of the live value and deleting the OpStore
// instructions, then fills in each OpPhi's Args with one value per
// predecessor (in predecessor order) once every block has been visited.
func renameSlots(fn *il.Function, tree *DomTree, slots map[il.Register]bool, phis map[phiSite]il.Value) {
	stacks := map[il.Register][]il.Value{}
	for r := range slots {
		stacks[r] = nil
	}

	phiArgs := map[phiSite]map[cfg.BlockID]il.Value{}
	for site := range phis {
		phiArgs[site] = map[cfg.BlockID]il.Value{}
	}

	var walk func(b cfg.BlockID)
	walk = func(b cfg.BlockID) {
		pushed := map[il.Register]int{}

		for r := range slots {
			if dst, ok := phis[phiSite{reg: r, block: b}]; ok {
				stacks[r] = append(stacks[r], dst)
				pushed[r]++
			}
		}

		var newCode []il.Instruction
		for _, instr := range fn.Code[b] {
			switch {
			case instr.Op == il.OpStore && instr.Dest.Kind == il.ValueRegister && slots[instr.Dest.Reg]:
				stacks[instr.Dest.Reg] = append(stacks[instr.Dest.Reg], instr.Args[0])
				pushed[instr.Dest.Reg]++
				continue // the stored value now lives purely in the version stack
			case instr.Op == il.OpLoad && len(instr.Args) == 1 && instr.Args[0].Kind == il.ValueRegister && slots[instr.Args[0].Reg]:
				r := instr.Args[0].Reg
				if len(stacks[r]) == 0 {
					newCode = append(newCode, instr) // read with no reaching def; leave for Verify to flag
					continue
				}
				current := stacks[r][len(stacks[r])-1]
				newCode = append(newCode, il.Instruction{Op: il.OpCopy, Dest: instr.Dest, Args: []il.Value{current}, Loc: instr.Loc})
				continue
			}
			newCode = append(newCode, instr)
		}
		fn.Code[b] = newCode

		for _, s := range fn.CFG.Successors(b) {
			for r := range slots {
				site := phiSite{reg: r, block: s}
				if _, ok := phis[site]; ok && len(stacks[r]) > 0 {
					phiArgs[site][b] = stacks[r][len(stacks[r])-1]
				}
			}
		}

		for _, child := range tree.Children(b) {
			walk(child)
		}

		for r, n := range pushed {
			stacks[r] = stacks[r][:len(stacks[r])-n]
		}
	}
	walk(fn.CFG.Entry)

	for site, dst := range phis {
		preds := fn.CFG.Predecessors(site.block)
		args := make([]il.Value, 0, len(preds))
		for _, p := range preds {
			if v, ok := phiArgs[site][p]; ok {
				args = append(args, v)
			}
		}
		instr := il.Instruction{Op: il.OpPhi, Dest: dst, Args: args}
		fn.Code[site.block] = append([]il.Instruction{instr}, fn.Code[site.block]...)
	}
}
