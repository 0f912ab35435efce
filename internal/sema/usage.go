package sema

import (
	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/symbols"
	"github.com/samber/lo"
)

// analyzeUsage is the "advanced analysis" step from spec.md §4.3: it walks
// every module-scope symbol and its imports, reporting diag.UnusedVariable,
// diag.UnusedFunction, and diag.UnusedImport for declarations that were
// never referenced. Exported symbols are exempt (another module may use
// them); "main" is exempt (it is the program entry point, called by the
// runtime start-up stub rather than by name from user code).
func (a *Analyzer) analyzeUsage() {
	for _, name := range a.order {
		table, ok := a.tables[name]
		if !ok {
			continue
		}
		for _, sym := range table.ModuleScope.All() {
			if sym.IsExported || sym.Name == "main" {
				continue
			}
			switch sym.SKind {
			case symbols.KindVariable, symbols.KindMappedVariable:
				if !sym.IsUsed() {
					a.Diags.Warnf(diag.UnusedVariable, sym.Location, "%q is declared but never used", sym.Name)
				}
			case symbols.KindFunction:
				if !sym.IsUsed() {
					a.Diags.Warnf(diag.UnusedFunction, sym.Location, "%q is declared but never called", sym.Name)
				}
			}
		}

		prog := a.programs[name]
		usedModules := a.importedModulesUsed(prog)
		for _, imp := range prog.Imports {
			if len(imp.Symbols) == 0 {
				if !lo.Contains(usedModules, imp.ModuleName) {
					a.Diags.Warnf(diag.UnusedImport, imp.Loc(), "module %q is imported but never used", imp.ModuleName)
				}
				continue
			}
			for _, sym := range imp.Symbols {
				if !a.symbolUsedFromModule(prog, imp.ModuleName, sym) {
					a.Diags.Warnf(diag.UnusedImport, imp.Loc(), "imported symbol %q from %q is never used", sym, imp.ModuleName)
				}
			}
		}
	}
}

// importedModulesUsed collects the set of imported-module names actually
// referenced (as a qualifier) somewhere in prog, populated during
// checkModule via IdentifierExpr.Qualifier / CallExpr callee qualifiers.
func (a *Analyzer) importedModulesUsed(prog *ast.Program) []string {
	var used []string
	var walkExpr func(ast.Expr)
	var walkStmt func(ast.Stmt)

	walkExpr = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch ex := e.(type) {
		case *ast.IdentifierExpr:
			if ex.Qualifier != "" {
				used = append(used, ex.Qualifier)
			}
		case *ast.CallExpr:
			if id, ok := ex.Callee.(*ast.IdentifierExpr); ok && id.Qualifier != "" {
				used = append(used, id.Qualifier)
			}
			walkExpr(ex.Callee)
			for _, arg := range ex.Args {
				walkExpr(arg)
			}
		case *ast.BinaryExpr:
			walkExpr(ex.Left)
			walkExpr(ex.Right)
		case *ast.UnaryExpr:
			walkExpr(ex.Operand)
		case *ast.AssignExpr:
			walkExpr(ex.Target)
			walkExpr(ex.Value)
		case *ast.IndexExpr:
			walkExpr(ex.Array)
			walkExpr(ex.Index)
		case *ast.MemberExpr:
			walkExpr(ex.Object)
		case *ast.TernaryExpr:
			walkExpr(ex.Cond)
			walkExpr(ex.Then)
			walkExpr(ex.Else)
		case *ast.ArrayLiteralExpr:
			for _, el := range ex.Elements {
				walkExpr(el)
			}
		}
	}
	walkStmt = func(s ast.Stmt) {
		switch st := s.(type) {
		case *ast.ExprStmt:
			walkExpr(st.X)
		case *ast.DeclStmt:
			walkExpr(st.Decl.Initializer)
		case *ast.IfStmt:
			walkExpr(st.Cond)
			walkBlock(st.Then, walkStmt)
			if st.Else != nil {
				walkStmt(st.Else)
			}
		case *ast.WhileStmt:
			walkExpr(st.Cond)
			walkBlock(st.Body, walkStmt)
		case *ast.ForStmt:
			walkExpr(st.Start)
			walkExpr(st.End)
			walkExpr(st.Step)
			walkBlock(st.Body, walkStmt)
		case *ast.MatchStmt:
			walkExpr(st.Subject)
			for _, mc := range st.Cases {
				walkBlock(mc.Body, walkStmt)
			}
		case *ast.ReturnStmt:
			walkExpr(st.Value)
		case *ast.BlockStmt:
			walkBlock(st, walkStmt)
		}
	}

	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.FunctionDecl:
			if decl.Body != nil {
				walkBlock(decl.Body, walkStmt)
			}
		case *ast.VariableDecl:
			walkExpr(decl.Initializer)
		}
	}
	return lo.Uniq(used)
}

func walkBlock(b *ast.BlockStmt, walkStmt func(ast.Stmt)) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		walkStmt(s)
	}
}

func (a *Analyzer) symbolUsedFromModule(prog *ast.Program, moduleName, symbolName string) bool {
	sym, ok := a.Globals.Resolve(moduleName, symbolName)
	return ok && sym.IsUsed()
}
