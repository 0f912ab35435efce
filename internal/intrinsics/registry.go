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

// Package intrinsics holds the fixed, closed registry of compiler-known
// built-in functions from spec.md §4.3/§6 (peek/poke family, lo/hi,
// length/sizeof, stack ops, cpu control, barrier/volatile access). These are
// never ordinary function symbols: the IL generator dispatches on Name
// directly rather than emitting a Call instruction to user code.
package intrinsics

import "github.com/blend65/blend65/internal/types"

// Name is the closed set of recognized intrinsic identifiers.
type Name string

const (
	Peek          Name = "peek"
	Poke          Name = "poke"
	PeekWord      Name = "peekw"
	PokeWord      Name = "pokew"
	Lo            Name = "lo"
	Hi            Name = "hi"
	Length        Name = "length"
	SizeOf        Name = "sizeof"
	PushA         Name = "pha"
	PopA          Name = "pla"
	PushStatus    Name = "php"
	PopStatus     Name = "plp"
	DisableIRQ    Name = "sei"
	EnableIRQ     Name = "cli"
	NoOp          Name = "nop"
	ForceBreak    Name = "brk"
	Barrier       Name = "barrier"
	VolatileRead  Name = "volatile_read"
	VolatileWrite Name = "volatile_write"
)

// Signature describes an intrinsic's arity and per-argument/result types in
// terms of types.Kind rather than interned types.ID, since the registry is
// built once, before any types.Table exists; sema resolves Kind -> ID
// against its own table when type-checking a call.
type Signature struct {
	Name       Name
	ParamKinds []types.Kind
	// Variadic marks sizeof, whose single argument is a type expression
	// rather than a value and is checked specially by sema.
	Variadic bool
	Result   types.Kind
	// HasSideEffect marks intrinsics that must never be treated as pure by
	// the optimizer's DCE/CSE passes (poke family, pushes/pops, cpu control,
	// barrier, volatile access), per spec.md §4.6.
	HasSideEffect bool
	// IsSequencePoint marks barrier, brk and the volatile family, which must
	// never be reordered relative to each other, per spec.md §4.6's
	// raster-critical handling.
	IsSequencePoint bool
}

var registry = map[Name]Signature{
	Peek:          {Name: Peek, ParamKinds: []types.Kind{types.Word}, Result: types.Byte},
	Poke:          {Name: Poke, ParamKinds: []types.Kind{types.Word, types.Byte}, Result: types.Void, HasSideEffect: true},
	PeekWord:      {Name: PeekWord, ParamKinds: []types.Kind{types.Word}, Result: types.Word},
	PokeWord:      {Name: PokeWord, ParamKinds: []types.Kind{types.Word, types.Word}, Result: types.Void, HasSideEffect: true},
	Lo:            {Name: Lo, ParamKinds: []types.Kind{types.Word}, Result: types.Byte},
	Hi:            {Name: Hi, ParamKinds: []types.Kind{types.Word}, Result: types.Byte},
	Length:        {Name: Length, ParamKinds: []types.Kind{types.Array}, Result: types.Word},
	SizeOf:        {Name: SizeOf, Variadic: true, Result: types.Word},
	PushA:         {Name: PushA, ParamKinds: []types.Kind{types.Byte}, Result: types.Void, HasSideEffect: true},
	PopA:          {Name: PopA, Result: types.Byte, HasSideEffect: true},
	PushStatus:    {Name: PushStatus, Result: types.Void, HasSideEffect: true},
	PopStatus:     {Name: PopStatus, Result: types.Void, HasSideEffect: true},
	DisableIRQ:    {Name: DisableIRQ, Result: types.Void, HasSideEffect: true},
	EnableIRQ:     {Name: EnableIRQ, Result: types.Void, HasSideEffect: true},
	NoOp:          {Name: NoOp, Result: types.Void, HasSideEffect: true},
	ForceBreak:    {Name: ForceBreak, Result: types.Void, HasSideEffect: true, IsSequencePoint: true},
	Barrier:       {Name: Barrier, Result: types.Void, HasSideEffect: true, IsSequencePoint: true},
	VolatileRead:  {Name: VolatileRead, ParamKinds: []types.Kind{types.Word}, Result: types.Byte, HasSideEffect: true, IsSequencePoint: true},
	VolatileWrite: {Name: VolatileWrite, ParamKinds: []types.Kind{types.Word, types.Byte}, Result: types.Void, HasSideEffect: true, IsSequencePoint: true},
}

// Lookup returns the signature for name, if name is a recognized intrinsic.
func Lookup(name string) (Signature, bool) {
	sig, ok := registry[Name(name)]
	return sig, ok
}

// IsIntrinsic reports whether name shadows a compiler intrinsic; sema uses
// this to reject user declarations that collide with a reserved name.
func IsIntrinsic(name string) bool {
	_, ok := registry[Name(name)]
	return ok
}

// All returns every registered signature, in a stable order, for use by
// diagnostics that need to suggest "did you mean" completions.
func All() []Signature {
	names := []Name{Peek, Poke, PeekWord, PokeWord, Lo, Hi, Length, SizeOf, PushA, PopA, PushStatus, PopStatus, DisableIRQ, EnableIRQ, NoOp, ForceBreak, Barrier, VolatileRead, VolatileWrite}
	out := make([]Signature, 0, len(names))
	for _, n := range names {
		out = append(out, registry[n])
	}
	return out
}
