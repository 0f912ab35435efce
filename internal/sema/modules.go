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

// Package sema implements the multi-pass semantic analyzer from spec.md
// §4.3: module registration and dependency ordering, symbol-table
// construction, type resolution and checking, control-flow validation,
// memory layout, and usage analysis.
package sema

import (
	"strings"

	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/symbols"
	"github.com/blend65/blend65/internal/types"
	"github.com/samber/lo"
)

// Analyzer runs every semantic pass over a set of parsed modules and
// produces a Result usable by the IL generator.
type Analyzer struct {
	Types   *types.Table
	Diags   *diag.Collector
	Meta    *ast.Metadata
	Globals *symbols.GlobalSymbolTable

	programs map[string]*ast.Program
	tables   map[string]*symbols.Table
	aliases  map[string]map[string]types.ID
	enums    map[string]map[string]*ast.EnumDecl
	order    []string
}

// Result is everything downstream phases (IL generation) need after
// semantic analysis succeeds.
type Result struct {
	Types       *types.Table
	Metadata    *ast.Metadata
	Globals     *symbols.GlobalSymbolTable
	ModuleOrder []string
	MainModule  string
	MainFunc    *ast.FunctionDecl
}

// NewAnalyzer wires up a fresh, empty Analyzer sharing diags with the
// caller's collector, per spec.md §5's single accumulated-diagnostics model.
func NewAnalyzer(diags *diag.Collector) *Analyzer {
	return &Analyzer{
		Types:    types.NewTable(),
		Diags:    diags,
		Meta:     ast.NewMetadata(),
		Globals:  symbols.NewGlobalSymbolTable(),
		programs: map[string]*ast.Program{},
		tables:   map[string]*symbols.Table{},
		aliases:  map[string]map[string]types.ID{},
		enums:    map[string]map[string]*ast.EnumDecl{},
	}
}

// Analyze runs the full pipeline of passes over programs (one per parsed
// source file) and returns the aggregated Result. Diagnostics accumulate in
// a.Diags regardless of outcome; the caller checks a.Diags.HasErrors().
func (a *Analyzer) Analyze(programs []*ast.Program) *Result {
	a.registerModules(programs)
	order, _ := a.topoSortModules()
	a.order = order

	// Modules that participate in a cycle never reach declareModule or
	// checkModule: their dependency graph is unresolvable, so per-module
	// passes that assume a complete import graph would either nil-panic or
	// report a cascade of misleading downstream errors. The cycle itself
	// was already reported as a CircularImport diagnostic.
	for _, name := range order {
		a.declareModule(a.programs[name])
	}
	for _, name := range order {
		a.Globals.RegisterModule(name, a.tables[name])
	}
	for _, name := range order {
		a.checkModule(a.programs[name])
	}

	a.checkMemoryLayout()
	mainModule, mainFunc := a.findMain()
	a.analyzeUsage()

	return &Result{
		Types:       a.Types,
		Metadata:    a.Meta,
		Globals:     a.Globals,
		ModuleOrder: append([]string{}, order...),
		MainModule:  mainModule,
		MainFunc:    mainFunc,
	}
}

func (a *Analyzer) registerModules(programs []*ast.Program) {
	for _, p := range programs {
		if existing, ok := a.programs[p.ModuleName]; ok {
			a.Diags.Errorf(diag.DuplicateModule, p.Loc(), "module %q already declared in %s", p.ModuleName, existing.File)
			continue
		}
		a.programs[p.ModuleName] = p
	}
}

// topoSortModules orders modules so that every module appears after all of
// its imports, using DFS coloring to additionally detect cycles, per
// spec.md §4.3's "dependency graph, cycle detection." Modules participating
// in a cycle are returned separately; each cycle is reported once, as a
// single diag.CircularImport naming the full chain (e.g. "a → b → a").
func (a *Analyzer) topoSortModules() (order []string, cyclic []string) {
	const (
		white = iota
		gray
		black
	)
	color := map[string]int{}
	for name := range a.programs {
		color[name] = white
	}
	inCycle := map[string]bool{}

	var visit func(name string, path []string)
	visit = func(name string, path []string) {
		switch color[name] {
		case black:
			return
		case gray:
			// Found a back-edge: every module from name's first occurrence
			// in path to the end is part of the cycle. Report the full
			// chain once, at the module that closes the loop.
			start := lo.IndexOf(path, name)
			chain := append(append([]string{}, path[start:]...), name)
			for _, m := range chain[:len(chain)-1] {
				inCycle[m] = true
			}
			if prog, ok := a.programs[name]; ok {
				a.Diags.Errorf(diag.CircularImport, prog.Loc(), "circular import: %s", strings.Join(chain, " → "))
			}
			return
		}
		color[name] = gray
		path = append(path, name)
		prog, ok := a.programs[name]
		if ok {
			for _, imp := range prog.Imports {
				if _, exists := a.programs[imp.ModuleName]; !exists {
					a.Diags.Errorf(diag.ModuleNotFound, imp.Loc(), "imported module %q not found", imp.ModuleName)
					continue
				}
				visit(imp.ModuleName, path)
			}
		}
		color[name] = black
		if !inCycle[name] {
			order = append(order, name)
		}
	}

	names := lo.Keys(a.programs)
	for _, n := range names {
		if color[n] == white {
			visit(n, nil)
		}
	}
	for n := range inCycle {
		cyclic = append(cyclic, n)
	}
	return order, cyclic
}

// findMain locates the program's entry point: the single function named
// "main" that is exported (explicitly, or implicitly per
// diag.ImplicitMainExport). Zero matches reports diag.MissingMain; more than
// one reports diag.DuplicateExportedMain on every match after the first.
func (a *Analyzer) findMain() (string, *ast.FunctionDecl) {
	var moduleName string
	var found *ast.FunctionDecl
	for _, name := range a.order {
		prog := a.programs[name]
		for _, d := range prog.Declarations {
			fn, ok := d.(*ast.FunctionDecl)
			if !ok || fn.Name != "main" {
				continue
			}
			if !fn.Exported {
				fn.Exported = true
				a.Diags.Warnf(diag.ImplicitMainExport, fn.Loc(), "function %q is implicitly exported as the program entry point", fn.Name)
			}
			if found != nil {
				a.Diags.Errorf(diag.DuplicateExportedMain, fn.Loc(), "multiple modules export a main function")
				continue
			}
			found = fn
			moduleName = name
		}
	}
	if found == nil {
		a.Diags.Errorf(diag.MissingMain, source0(), "no module exports a main function")
	}
	return moduleName, found
}
