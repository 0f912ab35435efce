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

// Package il implements Blend65's intermediate language: SSA-form
// three-address code, per spec.md §3.6. Functions carry a cfg.Graph of
// basic blocks; each block is a flat []Instruction ending in a terminator
// opcode.
package il

import (
	"fmt"

	"github.com/blend65/blend65/internal/cfg"
	"github.com/blend65/blend65/internal/source"
	"github.com/blend65/blend65/internal/types"
)

// ValueKind distinguishes the four forms an operand can take.
type ValueKind int

const (
	ValueRegister ValueKind = iota
	ValueConstant
	ValueLabel
	ValueGlobal
)

// Value is one IL operand: a virtual register (pre-allocation SSA name, or
// a mem2reg-style local slot before internal/ssa promotes it), an immediate
// constant, a block label (branch targets), or a qualified global name.
type Value struct {
	Kind   ValueKind
	Reg    Register
	Const  uint16
	Type   types.ID
	Block  cfg.BlockID
	Global string
}

func Reg(r Register, t types.ID) Value { return Value{Kind: ValueRegister, Reg: r, Type: t} }
func Const(v uint16, t types.ID) Value { return Value{Kind: ValueConstant, Const: v, Type: t} }
func Label(b cfg.BlockID) Value        { return Value{Kind: ValueLabel, Block: b} }
func Global(name string, t types.ID) Value {
	return Value{Kind: ValueGlobal, Global: name, Type: t}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueRegister:
		return fmt.Sprintf("%%%d", v.Reg)
	case ValueConstant:
		return fmt.Sprintf("#%d", v.Const)
	case ValueLabel:
		return fmt.Sprintf("block%d", v.Block)
	case ValueGlobal:
		return "@" + v.Global
	default:
		return "?"
	}
}

// Register names a virtual register. SSA promotion (internal/ssa) carries no
// version subscript: each phi it places gets a fresh Register, and each
// load of a promoted slot becomes an OpCopy into the load's own Dest.
type Register int

// Opcode is the closed set of IL operations, per spec.md §3.6.
type Opcode int

const (
	OpConst Opcode = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpNeg
	OpNot
	OpBitNot
	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe
	OpZeroExtend // byte -> word
	OpTruncate   // word -> byte (explicit narrowing)
	OpBoolToByte
	OpByteToBool
	OpLoad       // load from a local/global slot
	OpStore      // store to a local/global slot
	OpLoadIndex  // array element load
	OpStoreIndex // array element store
	// OpMapLoadField/OpMapStoreField read/write one field of an @map
	// declaration: Args[0] is the map's base Global, Args[1] a constant
	// byte offset. Kept distinct from OpLoad/OpStore so codegen can address
	// the field directly (base+offset) instead of resolving a synthesized
	// global name.
	OpMapLoadField
	OpMapStoreField // Args[2] (store value) in addition to base/offset
	// OpMapLoadRange/OpMapStoreRange read/write one element of a ranged
	// field at a runtime index: Args[0] base, Args[1] constant offset,
	// Args[2] index.
	OpMapLoadRange
	OpMapStoreRange // Args[3] (store value) in addition to base/offset/index
	OpAddrOf        // address-of a slot
	OpPeek
	OpPoke
	OpCall
	OpIntrinsicCall
	OpPhi
	OpCopy // SSA alias introduced by internal/ssa promotion; folded by the optimizer's copy-propagation pass
	OpJump
	OpBranch // conditional: cond, thenBlock, elseBlock
	OpReturn
	OpReturnVoid
	OpBarrier // raster-critical sequence point; never reordered or eliminated
)

// Instruction is one IL three-address operation. Dest is the zero Value for
// void-result opcodes (jumps, returns, barrier, and stores to globals, array
// elements and map fields); an OpStore to a local slot names the slot
// register in Dest.
type Instruction struct {
	Op   Opcode
	Dest Value
	Args []Value

	// Callee identifies the target of OpCall (qualified function name,
	// "module.func") or the intrinsic name for OpIntrinsicCall.
	Callee string

	Loc source.Location

	// 6502 code-generation hints consumed by codegen6502 and the optimizer.
	// The IL generator sets RasterCritical; no phase sets PreferZeroPage or
	// CycleEstimate.
	PreferZeroPage bool
	CycleEstimate  int
	RasterCritical bool
}

// Function is one compiled function: its parameter/result registers, a
// control-flow graph of basic blocks, and each block's instruction stream.
type Function struct {
	Name       string
	Module     string
	Exported   bool
	Params     []Register
	ParamTypes []types.ID
	ResultType types.ID

	CFG   *cfg.Graph
	Code  map[cfg.BlockID][]Instruction
	nextReg Register

	LoopHeaders map[cfg.BlockID]bool
	LoopLatches map[cfg.BlockID]bool
}

func NewFunction(name, module string) *Function {
	g := cfg.NewGraph()
	return &Function{
		Name: name, Module: module,
		CFG:  g,
		Code: map[cfg.BlockID][]Instruction{g.Entry: nil, g.Exit: nil},

		LoopHeaders: map[cfg.BlockID]bool{},
		LoopLatches: map[cfg.BlockID]bool{},
	}
}

func (f *Function) NewRegister() Register {
	r := f.nextReg
	f.nextReg++
	return r
}

// NewBlock creates a fresh block in f's CFG and an empty instruction slot.
func (f *Function) NewBlock(label string) cfg.BlockID {
	id := f.CFG.NewBlock(label)
	f.Code[id] = nil
	return id
}

// Emit appends instr to the end of block id.
func (f *Function) Emit(id cfg.BlockID, instr Instruction) {
	f.Code[id] = append(f.Code[id], instr)
}

// Terminate appends a terminating instruction and records the block's
// TerminatorKind plus any successor edges implied by its arguments.
func (f *Function) Terminate(id cfg.BlockID, instr Instruction) {
	f.Emit(id, instr)
	switch instr.Op {
	case OpJump:
		f.CFG.Block(id).Terminator = cfg.TermJump
		f.CFG.AddEdge(id, instr.Args[0].Block)
	case OpBranch:
		f.CFG.Block(id).Terminator = cfg.TermBranch
		f.CFG.AddEdge(id, instr.Args[1].Block)
		f.CFG.AddEdge(id, instr.Args[2].Block)
	case OpReturn:
		f.CFG.Block(id).Terminator = cfg.TermReturn
		f.CFG.AddEdge(id, f.CFG.Exit)
	case OpReturnVoid:
		f.CFG.Block(id).Terminator = cfg.TermReturnVoid
		f.CFG.AddEdge(id, f.CFG.Exit)
	}
}

// Module is a compiled module: its exported/private functions and global
// variables, plus the memory-mapped declarations it owns.
type Module struct {
	Name      string
	Functions []*Function
	Globals   []*GlobalVariable
}

// GlobalVariable is one module/program-scope variable as IL generation
// builds it: its declared storage class is recorded, but no concrete
// address is assigned to it.
type GlobalVariable struct {
	Name       string
	Module     string
	Type       types.ID
	IsConst    bool
	Storage    StorageClass
	Address    int // not set by IL generation; zero for every storage class
	InitValue  []uint16
	Exported   bool
}

type StorageClass int

const (
	StorageRAM StorageClass = iota
	StorageZeroPage
	StorageData
	StorageMap
)
