// Copyright 2026 Blend65 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package optimizer runs a fixed pipeline of IL-to-IL passes to a fixed
// point, per spec.md §4.6: unreachable-block elimination, dead-code
// elimination that respects raster-critical sequence points, constant
// folding and propagation, copy propagation, and local common-subexpression
// elimination. Passes are intentionally conservative: any instruction
// flagged RasterCritical, or any opcode the intrinsics registry marks as a
// sequence point, is never reordered or removed.
package optimizer

import (
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
)

// Pass is one optimization transformation over a single function's IL.
// Apply reports whether it changed anything, so the pipeline can iterate to
// a fixed point.
type Pass interface {
	Name() string
	Apply(fn *il.Function, diags *diag.Collector) bool
}

// Pipeline runs its passes repeatedly, in order, until none of them report
// a change or maxIterations is reached.
type Pipeline struct {
	passes        []Pass
	maxIterations int
}

// NewPipeline builds the default pass order: unreachable-block elimination
// must run first so later passes never waste work analyzing dead code;
// constant folding before DCE so folded-to-unused results actually get
// removed; copy propagation after SSA promotion introduces OpCopy chains;
// CSE last, since it only helps once redundant computations have stabilized.
func NewPipeline() *Pipeline {
	return &Pipeline{
		passes: []Pass{
			&UnreachableBlockElimination{},
			&ConstantFolding{},
			&ConstantPropagation{},
			&CopyPropagation{},
			&DeadCodeElimination{},
			&CommonSubexpressionElimination{},
		},
		maxIterations: 16,
	}
}

// Run applies every pass to fn in order, repeating the whole pipeline until
// a full round makes no changes (or the iteration cap is hit, as a
// guardrail against a pass pair that oscillates).
func (p *Pipeline) Run(fn *il.Function, diags *diag.Collector) {
	for i := 0; i < p.maxIterations; i++ {
		changed := false
		for _, pass := range p.passes {
			if pass.Apply(fn, diags) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// RunModule applies the pipeline to every function in mod.
func RunModule(mod *il.Module, diags *diag.Collector) {
	p := NewPipeline()
	for _, fn := range mod.Functions {
		p.Run(fn, diags)
	}
}

// isSequencePoint reports whether instr must keep its exact position
// relative to every other sequence point: explicit raster-critical markers
// from codegen hints, and the OpBarrier opcode itself.
func isSequencePoint(instr il.Instruction) bool {
	return instr.RasterCritical || instr.Op == il.OpBarrier
}

// hasSideEffect reports whether instr's result may be discarded only if
// nothing uses it, or whether the instruction must be kept regardless
// (stores, calls, intrinsic calls, barriers, control flow, and reads of
// @map fields, which address hardware registers).
func hasSideEffect(instr il.Instruction) bool {
	switch instr.Op {
	case il.OpStore, il.OpStoreIndex, il.OpMapStoreField, il.OpMapStoreRange, il.OpCall, il.OpIntrinsicCall, il.OpBarrier,
		il.OpMapLoadField, il.OpMapLoadRange,
		il.OpPoke, il.OpJump, il.OpBranch, il.OpReturn, il.OpReturnVoid:
		return true
	default:
		return isSequencePoint(instr)
	}
}
