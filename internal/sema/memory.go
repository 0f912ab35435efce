package sema

import (
	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
)

// zeroPageBudget is the number of zero-page bytes the compiler may hand out
// to `zeropage`-storage globals, per spec.md §4.3's memory-layout step. The
// C64 zero page is 256 bytes total, but a large portion is reserved by the
// KERNAL/BASIC ROMs and the runtime's own temporaries, leaving 112 free.
const zeroPageBudget = 112

// mappedRegion records one address range claimed by a memory-mapped
// declaration, for overlap detection against every other claimed region.
type mappedRegion struct {
	name        string
	start, size int
	loc         ast.Node
}

// checkMemoryLayout walks every module's top-level declarations, assigns
// zero-page offsets to zeropage-storage globals (reporting
// diag.ZeroPageOverflow and diag.ZeroPageNearOverflow), and checks every
// fixed-address @map declaration for overlap against the others (reporting
// diag.MemoryOverlap).
func (a *Analyzer) checkMemoryLayout() {
	zpUsed := 0
	var regions []mappedRegion

	for _, name := range a.order {
		prog := a.programs[name]
		for _, d := range prog.Declarations {
			switch decl := d.(type) {
			case *ast.VariableDecl:
				if decl.Storage != ast.StorageZeroPage {
					continue
				}
				t, _ := a.Meta.TypeOf(decl)
				size := a.Types.Get(t).Size
				if size == 0 {
					size = 1
				}
				zpUsed += size
				if zpUsed > zeroPageBudget {
					a.Diags.Errorf(diag.ZeroPageOverflow, decl.Loc(), "zero-page budget of %d bytes exceeded by %q", zeroPageBudget, decl.Name)
				} else if float64(zpUsed) >= 0.8*float64(zeroPageBudget) {
					a.Diags.Warnf(diag.ZeroPageNearOverflow, decl.Loc(), "zero-page usage at %d/%d bytes", zpUsed, zeroPageBudget)
				}
			case *ast.MemoryMapDecl:
				addr, ok := a.foldConstInt(name, decl.Address)
				if !ok {
					continue
				}
				size := 0
				for _, f := range decl.Fields {
					size += f.Offset
				}
				if len(decl.Fields) > 0 {
					last := decl.Fields[len(decl.Fields)-1]
					size = last.Offset + 1
				}
				region := mappedRegion{name: decl.Name, start: addr, size: size, loc: decl}
				for _, other := range regions {
					if rangesOverlap(region.start, region.size, other.start, other.size) {
						a.Diags.Errorf(diag.MemoryOverlap, decl.Loc(), "memory map %q at $%04X overlaps %q", decl.Name, addr, other.name)
					}
				}
				regions = append(regions, region)
			}
		}
	}
}

func rangesOverlap(aStart, aSize, bStart, bSize int) bool {
	aEnd := aStart + aSize
	bEnd := bStart + bSize
	return aStart < bEnd && bStart < aEnd
}
