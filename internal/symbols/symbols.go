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

// Package symbols implements the scope tree and per-module symbol table,
// per spec.md §3.3.
package symbols

import (
	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/source"
	"github.com/blend65/blend65/internal/types"
)

// Kind is the closed set of symbol categories.
type Kind int

const (
	KindVariable Kind = iota
	KindParameter
	KindFunction
	KindType
	KindEnum
	KindEnumMember
	KindMappedVariable
	KindImportedSymbol
)

// Symbol is one named entity visible in some scope.
type Symbol struct {
	Name         string
	SKind        Kind
	Storage      ast.StorageClass
	IsConst      bool
	IsExported   bool
	Decl         ast.Node // the declaring AST node
	Type         types.ID
	Scope        *Scope
	Location     source.Location
	MappedOffset int // for KindEnumMember of a memory map, or struct field offset

	// Usage, populated by the advanced-analysis pass (spec.md §4.3 step 7).
	ReadCount  int
	WriteCount int
	LoopDepth  int
	HotPath    bool
}

func (s *Symbol) IsReadOnly() bool  { return s.WriteCount == 0 && s.ReadCount > 0 }
func (s *Symbol) IsWriteOnly() bool { return s.ReadCount == 0 && s.WriteCount > 0 }
func (s *Symbol) IsUsed() bool      { return s.ReadCount > 0 || s.WriteCount > 0 }

// ScopeKind distinguishes the four levels in the scope tree.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeModule
	ScopeFunction
	ScopeBlock
)

// Scope is one node in the global->module->function->block tree.
type Scope struct {
	Kind    ScopeKind
	Parent  *Scope
	Name    string // module name for ScopeModule, function name for ScopeFunction
	symbols map[string]*Symbol
	order   []string
}

func NewScope(kind ScopeKind, name string, parent *Scope) *Scope {
	return &Scope{Kind: kind, Parent: parent, Name: name, symbols: map[string]*Symbol{}}
}

// Declare adds sym to this scope. Returns the existing symbol and false if
// name is already declared directly in this scope (DuplicateDeclaration is
// the caller's responsibility to report).
func (s *Scope) Declare(sym *Symbol) (*Symbol, bool) {
	if existing, ok := s.symbols[sym.Name]; ok {
		return existing, false
	}
	sym.Scope = s
	s.symbols[sym.Name] = sym
	s.order = append(s.order, sym.Name)
	return sym, true
}

// LookupLocal looks up name only in this scope, not ancestors.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Lookup walks from this scope to the root, per spec.md §3.3.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if sym, ok := sc.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// All returns every symbol declared directly in this scope, in declaration
// order.
func (s *Scope) All() []*Symbol {
	out := make([]*Symbol, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.symbols[name])
	}
	return out
}

// Table is the per-module symbol table: a module scope plus every nested
// function/block scope created while walking that module's AST.
type Table struct {
	ModuleScope *Scope
	// Functions maps function name -> its own Scope, for quick lookup by
	// later passes (CFG builder, IL generator) without re-walking the AST.
	Functions map[string]*Scope
}

func NewTable(moduleName string, global *Scope) *Table {
	return &Table{
		ModuleScope: NewScope(ScopeModule, moduleName, global),
		Functions:   map[string]*Scope{},
	}
}
