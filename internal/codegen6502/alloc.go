package codegen6502

import (
	"github.com/blend65/blend65/internal/cfg"
	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/types"
)

// Location is where a virtual register lives once allocation has run: a
// 6502 register, or a byte address in a per-function working area (zero
// page when the defining instruction set PreferZeroPage, absolute RAM
// otherwise; no zero-page budget is checked).
type Location struct {
	InReg    byte // 'A', 'X', 'Y', or 0 if not register-resident
	Address  int  // valid when InReg == 0
	ZeroPage bool
	Size     int // 1 for byte-sized registers, 2 for word-sized
}

func (l Location) IsRegister() bool { return l.InReg != 0 }

// Allocator assigns every virtual register in a function to a Location
// using a coarse liveness classification of the IL plus the defining
// instruction's PreferZeroPage hint. It does not compare overlapping live
// ranges and does no priority-score spilling: every register that is not
// kept in the accumulator gets a slot of its own.
type Allocator struct {
	types        *types.Table
	nextZeroPage int
	nextAbsolute int
}

// NewAllocator starts zero-page allocation at zpBase and absolute working
// storage at ramBase; the caller (the compiler session) is responsible for
// keeping these out of the program's code/data regions.
func NewAllocator(tbl *types.Table, zpBase, ramBase int) *Allocator {
	return &Allocator{types: tbl, nextZeroPage: zpBase, nextAbsolute: ramBase}
}

// Allocate computes a Location for every register live in fn. A byte-sized
// register that is defined and consumed exactly once, both within the same
// block, lives entirely in the accumulator. Word-sized registers are never
// accumulator-resident (the accumulator is one byte); everything else that
// requested zero page gets the next zero-page bytes, and the rest gets
// absolute RAM. The zero-page cursor is not checked against any limit, so
// nothing falls back to absolute RAM when zero page runs out.
func (a *Allocator) Allocate(fn *il.Function) map[il.Register]Location {
	locs := map[il.Register]Location{}
	live := a.liveRanges(fn)

	for reg, interval := range live {
		if interval.short && interval.size == 1 {
			locs[reg] = Location{InReg: 'A', Size: 1}
			continue
		}
		if interval.preferZeroPage {
			locs[reg] = Location{Address: a.nextZeroPage, ZeroPage: true, Size: interval.size}
			a.nextZeroPage += interval.size
			continue
		}
		locs[reg] = Location{Address: a.nextAbsolute, Size: interval.size}
		a.nextAbsolute += interval.size
	}
	return locs
}

type liveInterval struct {
	preferZeroPage bool
	short          bool // defined and consumed within the same block, single use
	size           int  // 1 for byte, 2 for word
}

// liveRanges computes, for every register defined in fn, a coarse interval
// classification: "short" registers never cross a block boundary and have
// exactly one use, making them safe to keep in the accumulator rather than
// spilling; everything else needs a stable memory location so branches and
// calls don't clobber it.
func (a *Allocator) liveRanges(fn *il.Function) map[il.Register]liveInterval {
	defs := map[il.Register]cfg.BlockID{}
	defSize := map[il.Register]int{}
	defPrefersZP := map[il.Register]bool{}
	uses := map[il.Register][]cfg.BlockID{}
	useCount := map[il.Register]int{}

	for _, b := range fn.CFG.Blocks {
		for _, instr := range fn.Code[b.ID] {
			if instr.Dest.Kind == il.ValueRegister {
				defs[instr.Dest.Reg] = b.ID
				defPrefersZP[instr.Dest.Reg] = instr.PreferZeroPage
				defSize[instr.Dest.Reg] = a.typeSize(instr.Dest.Type)
			}
			for _, arg := range instr.Args {
				if arg.Kind == il.ValueRegister {
					uses[arg.Reg] = append(uses[arg.Reg], b.ID)
					useCount[arg.Reg]++
				}
			}
		}
	}

	out := map[il.Register]liveInterval{}
	for reg, defBlock := range defs {
		short := useCount[reg] == 1 && allSameBlock(uses[reg], defBlock)
		out[reg] = liveInterval{preferZeroPage: defPrefersZP[reg], short: short, size: defSize[reg]}
	}
	return out
}

func (a *Allocator) typeSize(id types.ID) int {
	if id == types.InvalidID {
		return 1
	}
	size := a.types.Get(id).Size
	if size <= 0 {
		return 1
	}
	return size
}

func allSameBlock(blocks []cfg.BlockID, want cfg.BlockID) bool {
	for _, b := range blocks {
		if b != want {
			return false
		}
	}
	return true
}
