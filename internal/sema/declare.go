package sema

import (
	"fmt"

	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/intrinsics"
	"github.com/blend65/blend65/internal/symbols"
)

// declareModule builds one module's symbol table: a first pass for type
// aliases and enums (so later declarations can reference them regardless of
// source order), then a second pass for variables, functions, and memory
// maps, per spec.md §4.3's "symbol-table builder" step.
func (a *Analyzer) declareModule(p *ast.Program) {
	table := symbols.NewTable(p.ModuleName, a.Globals.GlobalScope)
	a.tables[p.ModuleName] = table
	a.enums[p.ModuleName] = map[string]*ast.EnumDecl{}

	for _, d := range p.Declarations {
		switch decl := d.(type) {
		case *ast.TypeAliasDecl:
			a.declareTypeAlias(p.ModuleName, decl)
		case *ast.EnumDecl:
			a.declareEnum(p.ModuleName, table, decl)
		}
	}

	for _, d := range p.Declarations {
		switch decl := d.(type) {
		case *ast.FunctionDecl:
			a.declareFunction(p.ModuleName, table, decl)
		case *ast.VariableDecl:
			a.declareVariable(table, decl)
		case *ast.MemoryMapDecl:
			a.declareMemoryMap(table, decl)
		}
	}
}

func (a *Analyzer) declareTypeAlias(moduleName string, decl *ast.TypeAliasDecl) {
	if intrinsics.IsIntrinsic(decl.Name) {
		a.Diags.Errorf(diag.DuplicateDeclaration, decl.Loc(), "type %q shadows a built-in intrinsic name", decl.Name)
	}
	id := a.resolveType(moduleName, decl.Type)
	a.defineAlias(moduleName, decl.Name, id)
}

func (a *Analyzer) declareEnum(moduleName string, table *symbols.Table, decl *ast.EnumDecl) {
	qualified := fmt.Sprintf("%s.%s", moduleName, decl.Name)
	enumType := a.Types.NamedByte(qualified)
	a.defineAlias(moduleName, decl.Name, enumType)
	a.enums[moduleName][decl.Name] = decl

	sym := &symbols.Symbol{Name: decl.Name, SKind: symbols.KindEnum, IsExported: decl.Exported, Decl: decl, Type: enumType, Location: decl.Loc()}
	if _, added := table.ModuleScope.Declare(sym); !added {
		a.Diags.Errorf(diag.DuplicateDeclaration, decl.Loc(), "%q already declared in this module", decl.Name)
	}

	next := 0
	for i := range decl.Members {
		m := &decl.Members[i]
		value := next
		if m.Value != nil {
			if v, ok := a.foldConstInt(moduleName, m.Value); ok {
				value = v
			}
		}
		next = value + 1
		memberSym := &symbols.Symbol{Name: decl.Name + "." + m.Name, SKind: symbols.KindEnumMember, IsExported: decl.Exported, Decl: decl, Type: enumType, Location: m.Loc, MappedOffset: value}
		table.ModuleScope.Declare(memberSym)
	}
}

func (a *Analyzer) declareFunction(moduleName string, table *symbols.Table, decl *ast.FunctionDecl) {
	if intrinsics.IsIntrinsic(decl.Name) {
		a.Diags.Errorf(diag.DuplicateDeclaration, decl.Loc(), "function %q shadows a built-in intrinsic name", decl.Name)
	}
	fnScope := symbols.NewScope(symbols.ScopeFunction, decl.Name, table.ModuleScope)
	table.Functions[decl.Name] = fnScope
	for _, param := range decl.Params {
		pt := a.resolveType(moduleName, param.Type)
		fnScope.Declare(&symbols.Symbol{Name: param.Name, SKind: symbols.KindParameter, Type: pt, Location: param.Loc})
	}

	retType := a.Types.Void()
	if decl.ReturnType != nil {
		retType = a.resolveType(moduleName, decl.ReturnType)
	}
	a.Meta.SetType(decl, retType)

	sym := &symbols.Symbol{Name: decl.Name, SKind: symbols.KindFunction, IsExported: decl.Exported, Decl: decl, Type: retType, Location: decl.Loc()}
	if _, added := table.ModuleScope.Declare(sym); !added {
		a.Diags.Errorf(diag.DuplicateDeclaration, decl.Loc(), "%q already declared in this module", decl.Name)
	}
}

func (a *Analyzer) declareVariable(table *symbols.Table, decl *ast.VariableDecl) {
	if intrinsics.IsIntrinsic(decl.Name) {
		a.Diags.Errorf(diag.DuplicateDeclaration, decl.Loc(), "%q shadows a built-in intrinsic name", decl.Name)
	}
	t := a.resolveType(table.ModuleScope.Name, decl.Type)
	a.Meta.SetType(decl, t)

	kind := symbols.KindVariable
	if decl.Storage == ast.StorageMap {
		kind = symbols.KindMappedVariable
	}
	sym := &symbols.Symbol{
		Name: decl.Name, SKind: kind, Storage: decl.Storage, IsConst: decl.IsConst,
		IsExported: decl.Exported, Decl: decl, Type: t, Location: decl.Loc(),
	}
	if _, added := table.ModuleScope.Declare(sym); !added {
		a.Diags.Errorf(diag.DuplicateDeclaration, decl.Loc(), "%q already declared in this module", decl.Name)
	}
}

func (a *Analyzer) declareMemoryMap(table *symbols.Table, decl *ast.MemoryMapDecl) {
	sym := &symbols.Symbol{Name: decl.Name, SKind: symbols.KindType, Decl: decl, Location: decl.Loc()}
	if _, added := table.ModuleScope.Declare(sym); !added {
		a.Diags.Errorf(diag.DuplicateDeclaration, decl.Loc(), "%q already declared in this module", decl.Name)
	}
	offset := 0
	for i := range decl.Fields {
		f := &decl.Fields[i]
		f.Offset = offset
		t := a.resolveType(table.ModuleScope.Name, f.Type)
		offset += a.Types.Get(t).Size
		fieldSym := &symbols.Symbol{Name: decl.Name + "." + f.Name, SKind: symbols.KindMappedVariable, Type: t, Location: f.Loc, MappedOffset: f.Offset}
		table.ModuleScope.Declare(fieldSym)
	}
}
