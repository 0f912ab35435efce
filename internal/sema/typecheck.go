package sema

import (
	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/intrinsics"
	"github.com/blend65/blend65/internal/source"
	"github.com/blend65/blend65/internal/symbols"
	"github.com/blend65/blend65/internal/types"
)

// checkModule type-checks every function body and global initializer in p,
// resolving identifiers against the module's scope chain and the global
// symbol table for imports, per spec.md §4.3's "type resolver" and "type
// checker" steps.
func (a *Analyzer) checkModule(p *ast.Program) {
	table := a.tables[p.ModuleName]
	importedModules := make([]string, len(p.Imports))
	for i, imp := range p.Imports {
		importedModules[i] = imp.ModuleName
	}

	c := &checker{a: a, moduleName: p.ModuleName, table: table, imports: importedModules}

	for _, d := range p.Declarations {
		switch decl := d.(type) {
		case *ast.VariableDecl:
			if decl.Initializer != nil {
				it := c.checkExpr(table.ModuleScope, decl.Initializer)
				declType, _ := a.Meta.TypeOf(decl)
				c.requireAssignable(it, declType, decl.Initializer.Loc())
			} else {
				c.checkArraySizeInferable(decl.Type, decl.Name, decl.Loc())
			}
			if decl.Storage == ast.StorageMap && decl.MappedAddr != nil {
				c.checkExpr(table.ModuleScope, decl.MappedAddr)
			}
		case *ast.FunctionDecl:
			if decl.Body != nil {
				fnScope := table.Functions[decl.Name]
				retType, _ := a.Meta.TypeOf(decl)
				c.checkBlock(fnScope, decl.Body, retType, 0)
				if retType != a.Types.Void() && !blockAlwaysReturns(decl.Body) {
					a.Diags.Errorf(diag.ReturnTypeMismatch, decl.Loc(), "function %q must return a value on every path", decl.Name)
				}
			}
		case *ast.MemoryMapDecl:
			c.checkExpr(table.ModuleScope, decl.Address)
		}
	}
}

type checker struct {
	a          *Analyzer
	moduleName string
	table      *symbols.Table
	imports    []string
}

func (c *checker) checkBlock(scope *symbols.Scope, block *ast.BlockStmt, retType types.ID, loopDepth int) {
	blockScope := symbols.NewScope(symbols.ScopeBlock, "", scope)
	terminated := false
	for _, stmt := range block.Stmts {
		if terminated {
			a := c.a
			a.Diags.Warnf(diag.UnreachableCode, stmt.Loc(), "unreachable code")
		}
		c.checkStmt(blockScope, stmt, retType, loopDepth)
		if stmtTerminates(stmt) {
			terminated = true
		}
	}
}

func (c *checker) checkStmt(scope *symbols.Scope, stmt ast.Stmt, retType types.ID, loopDepth int) {
	a := c.a
	switch s := stmt.(type) {
	case *ast.DeclStmt:
		decl := s.Decl
		t := a.resolveType(c.moduleName, decl.Type)
		a.Meta.SetType(decl, t)
		if decl.Initializer != nil {
			it := c.checkExpr(scope, decl.Initializer)
			c.requireAssignable(it, t, decl.Initializer.Loc())
		} else if decl.IsConst {
			a.Diags.Errorf(diag.MissingConstInitializer, decl.Loc(), "const %q requires an initializer", decl.Name)
		} else {
			c.checkArraySizeInferable(decl.Type, decl.Name, decl.Loc())
		}
		sym := &symbols.Symbol{Name: decl.Name, SKind: symbols.KindVariable, Storage: decl.Storage, IsConst: decl.IsConst, Decl: decl, Type: t, Location: decl.Loc()}
		if _, added := scope.Declare(sym); !added {
			a.Diags.Errorf(diag.DuplicateDeclaration, decl.Loc(), "%q already declared in this scope", decl.Name)
		}
	case *ast.ExprStmt:
		c.checkExpr(scope, s.X)
	case *ast.IfStmt:
		c.checkExpr(scope, s.Cond)
		c.checkBlock(scope, s.Then, retType, loopDepth)
		switch e := s.Else.(type) {
		case *ast.BlockStmt:
			c.checkBlock(scope, e, retType, loopDepth)
		case *ast.IfStmt:
			c.checkStmt(scope, e, retType, loopDepth)
		}
	case *ast.WhileStmt:
		c.checkExpr(scope, s.Cond)
		c.checkBlock(scope, s.Body, retType, loopDepth+1)
	case *ast.ForStmt:
		startT := c.checkExpr(scope, s.Start)
		endT := c.checkExpr(scope, s.End)
		if s.Step != nil {
			c.checkExpr(scope, s.Step)
		}
		// §4.3: the induction variable is typed by the larger of its bounds,
		// so a word-valued start or stop widens a byte loop variable to word.
		varType, ok := a.Types.BinaryResult(types.Arithmetic, startT, endT)
		if !ok {
			varType = a.Types.Byte()
		}
		loopScope := symbols.NewScope(symbols.ScopeBlock, "", scope)
		loopScope.Declare(&symbols.Symbol{Name: s.Var, SKind: symbols.KindVariable, Type: varType, Location: s.VarDeclLoc})
		c.checkBlock(loopScope, s.Body, retType, loopDepth+1)
	case *ast.MatchStmt:
		c.checkExpr(scope, s.Subject)
		for _, mc := range s.Cases {
			for _, v := range mc.Values {
				c.checkExpr(scope, v)
			}
			c.checkBlock(scope, mc.Body, retType, loopDepth)
		}
	case *ast.ReturnStmt:
		if s.Value != nil {
			vt := c.checkExpr(scope, s.Value)
			c.requireAssignable(vt, retType, s.Loc())
		} else if retType != a.Types.Void() {
			a.Diags.Errorf(diag.ReturnTypeMismatch, s.Loc(), "function expects a return value")
		}
	case *ast.BreakStmt:
		if loopDepth == 0 {
			a.Diags.Errorf(diag.UnexpectedToken, s.Loc(), "'break' outside a loop")
		}
	case *ast.ContinueStmt:
		if loopDepth == 0 {
			a.Diags.Errorf(diag.UnexpectedToken, s.Loc(), "'continue' outside a loop")
		}
	case *ast.BlockStmt:
		c.checkBlock(scope, s, retType, loopDepth)
	case *ast.AsmStmt:
		// opaque to type checking; validated at code-generation time only.
	}
}

// checkExpr type-checks e, records its resolved type in Metadata, and
// returns that type. Every case follows spec.md §4.3's translation table:
// literals get their intrinsic type, identifiers resolve via scope then the
// global export table, binary/unary apply types.Table's operator rules with
// coercion markers recorded for widening/narrowing conversions.
func (c *checker) checkExpr(scope *symbols.Scope, e ast.Expr) types.ID {
	a := c.a
	var result types.ID
	switch ex := e.(type) {
	case *ast.LiteralExpr:
		switch ex.LitKind {
		case ast.LitByte:
			result = a.Types.Byte()
		case ast.LitWord:
			result = a.Types.Word()
		case ast.LitBool:
			result = a.Types.Bool()
		case ast.LitString:
			result = a.Types.Str()
		}
	case *ast.IdentifierExpr:
		result = c.resolveIdentifier(scope, ex)
	case *ast.BinaryExpr:
		result = c.checkBinary(scope, ex)
	case *ast.UnaryExpr:
		result = c.checkUnary(scope, ex)
	case *ast.AssignExpr:
		result = c.checkAssign(scope, ex)
	case *ast.CallExpr:
		result = c.checkCall(scope, ex)
	case *ast.IndexExpr:
		result = c.checkIndex(scope, ex)
	case *ast.MemberExpr:
		result = c.checkMember(scope, ex)
	case *ast.TernaryExpr:
		c.checkExpr(scope, ex.Cond)
		thenT := c.checkExpr(scope, ex.Then)
		elseT := c.checkExpr(scope, ex.Else)
		if a.Types.AssignableTo(elseT, thenT) {
			result = thenT
		} else {
			a.Diags.Errorf(diag.TypeMismatch, ex.Loc(), "ternary branches have incompatible types")
			result = a.Types.Unknown()
		}
	case *ast.ArrayLiteralExpr:
		var elem types.ID = a.Types.Unknown()
		for i, el := range ex.Elements {
			t := c.checkExpr(scope, el)
			if i == 0 {
				elem = t
			}
		}
		result = a.Types.Array(elem, len(ex.Elements))
		a.Meta.Set(ex.ID(), ast.MetaInferredArrayLen, len(ex.Elements))
	default:
		result = a.Types.Unknown()
	}
	a.Meta.SetType(e, result)
	return result
}

func (c *checker) resolveIdentifier(scope *symbols.Scope, ex *ast.IdentifierExpr) types.ID {
	a := c.a
	if sym, ok := scope.Lookup(ex.Name); ok {
		sym.ReadCount++
		return sym.Type
	}
	if intrinsics.IsIntrinsic(ex.Name) {
		return a.Types.Unknown() // resolved at call sites, not as a bare value
	}
	if sym, mod, ok := a.Globals.ResolveUnqualified(c.imports, ex.Name); ok {
		ex.Qualifier = mod
		sym.ReadCount++
		return sym.Type
	}
	a.Diags.Errorf(diag.UndefinedVariable, ex.Loc(), "undefined: %s", ex.Name)
	return a.Types.Unknown()
}

func (c *checker) checkBinary(scope *symbols.Scope, ex *ast.BinaryExpr) types.ID {
	a := c.a
	lt := c.checkExpr(scope, ex.Left)
	rt := c.checkExpr(scope, ex.Right)
	class := binaryOpClass(ex.Op)
	result, ok := a.Types.BinaryResult(class, lt, rt)
	if !ok {
		a.Diags.Errorf(diag.TypeMismatch, ex.Loc(), "operator not defined for operand types")
		return a.Types.Unknown()
	}
	c.markWideningIfNeeded(ex.Left, lt, result)
	c.markWideningIfNeeded(ex.Right, rt, result)
	return result
}

func (c *checker) markWideningIfNeeded(operand ast.Expr, operandType, resultType types.ID) {
	if operandType != resultType && c.a.Types.AssignableTo(operandType, resultType) {
		c.a.Meta.AddCoercion(operand, ast.CoerceZeroExtend)
	}
}

func binaryOpClass(op ast.BinaryOp) types.OperatorClass {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return types.Arithmetic
	case ast.OpAnd, ast.OpOr, ast.OpXor, ast.OpShl, ast.OpShr:
		return types.Bitwise
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return types.Comparison
	case ast.OpLogicalAnd, ast.OpLogicalOr:
		return types.Logical
	default:
		return types.Arithmetic
	}
}

func (c *checker) checkUnary(scope *symbols.Scope, ex *ast.UnaryExpr) types.ID {
	a := c.a
	operandType := c.checkExpr(scope, ex.Operand)
	switch ex.Op {
	case ast.OpAddressOf:
		if !isLvalue(ex.Operand) {
			a.Diags.Errorf(diag.AddressOfNonLvalue, ex.Loc(), "cannot take the address of a non-lvalue")
			return a.Types.Unknown()
		}
		return a.Types.Pointer(operandType)
	case ast.OpNot:
		return a.Types.Bool()
	default:
		return operandType
	}
}

func isLvalue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IdentifierExpr, *ast.IndexExpr, *ast.MemberExpr:
		return true
	default:
		return false
	}
}

func (c *checker) checkAssign(scope *symbols.Scope, ex *ast.AssignExpr) types.ID {
	a := c.a
	if !isLvalue(ex.Target) {
		a.Diags.Errorf(diag.TypeMismatch, ex.Loc(), "assignment target must be an lvalue")
	}
	if id, ok := ex.Target.(*ast.IdentifierExpr); ok {
		if sym, ok := scope.Lookup(id.Name); ok {
			if sym.IsConst {
				a.Diags.Errorf(diag.AssignToConst, ex.Loc(), "cannot assign to const %q", id.Name)
			}
			if a.Types.Get(sym.Type).Kind == types.Array {
				a.Diags.Errorf(diag.ArrayReassignment, ex.Loc(), "cannot reassign array %q as a whole", id.Name)
			}
			sym.WriteCount++
		}
	}
	targetType := c.checkExpr(scope, ex.Target)
	valueType := c.checkExpr(scope, ex.Value)
	c.requireAssignable(valueType, targetType, ex.Loc())
	return targetType
}

func (c *checker) checkIndex(scope *symbols.Scope, ex *ast.IndexExpr) types.ID {
	a := c.a
	arrT := c.checkExpr(scope, ex.Array)
	c.checkExpr(scope, ex.Index)
	info := a.Types.Get(arrT)
	if info.Kind != types.Array && info.Kind != types.Pointer {
		a.Diags.Errorf(diag.TypeMismatch, ex.Loc(), "cannot index a value of this type")
		return a.Types.Unknown()
	}
	return info.Elem
}

func (c *checker) checkMember(scope *symbols.Scope, ex *ast.MemberExpr) types.ID {
	a := c.a
	if objID, ok := ex.Object.(*ast.IdentifierExpr); ok {
		// Enum member (EnumName.Member) and memory-map field (MapName.field)
		// both resolve as a qualified lookup in the current module's scope
		// rather than as a value expression on ex.Object.
		if enums, ok := a.enums[c.moduleName]; ok {
			if _, isEnum := enums[objID.Name]; isEnum {
				if sym, ok := scope.Lookup(objID.Name + "." + ex.Field); ok {
					return sym.Type
				}
				a.Diags.Errorf(diag.UndefinedVariable, ex.Loc(), "enum %q has no member %q", objID.Name, ex.Field)
				return a.Types.Unknown()
			}
		}
		if sym, ok := scope.LookupLocal(objID.Name + "." + ex.Field); ok {
			return sym.Type
		}
		if sym, ok := c.table.ModuleScope.Lookup(objID.Name + "." + ex.Field); ok {
			return sym.Type
		}
		// module-qualified reference, e.g. mathlib.add
		for _, imp := range c.imports {
			if imp == objID.Name {
				if sym, ok := a.Globals.Resolve(imp, ex.Field); ok {
					return sym.Type
				}
			}
		}
	}
	c.checkExpr(scope, ex.Object)
	a.Diags.Errorf(diag.UndefinedVariable, ex.Loc(), "no member %q", ex.Field)
	return a.Types.Unknown()
}

func (c *checker) checkCall(scope *symbols.Scope, ex *ast.CallExpr) types.ID {
	a := c.a
	if id, ok := ex.Callee.(*ast.IdentifierExpr); ok {
		if sig, ok := intrinsics.Lookup(id.Name); ok {
			a.Meta.Set(ex.ID(), ast.MetaIntrinsic, string(sig.Name))
			if !sig.Variadic && len(ex.Args) != len(sig.ParamKinds) {
				a.Diags.Errorf(diag.IntrinsicArityMismatch, ex.Loc(), "%s expects %d argument(s), got %d", id.Name, len(sig.ParamKinds), len(ex.Args))
			}
			var argTypes []types.ID
			for _, arg := range ex.Args {
				argTypes = append(argTypes, c.checkExpr(scope, arg))
			}
			if sig.Name == intrinsics.Length && len(argTypes) == 1 {
				if info := a.Types.Get(argTypes[0]); info.Kind == types.Array && info.Len < 0 {
					a.Diags.Errorf(diag.LengthUnknownSize, ex.Loc(), "length() requires an array with a statically known size")
				}
			}
			switch sig.Result {
			case types.Void:
				return a.Types.Void()
			case types.Byte:
				return a.Types.Byte()
			case types.Word:
				return a.Types.Word()
			default:
				return a.Types.Unknown()
			}
		}
		if sym, ok := scope.Lookup(id.Name); ok && sym.SKind == symbols.KindFunction {
			sym.ReadCount++
			for _, arg := range ex.Args {
				c.checkExpr(scope, arg)
			}
			return sym.Type
		}
		if sym, mod, ok := a.Globals.ResolveUnqualified(c.imports, id.Name); ok && sym.SKind == symbols.KindFunction {
			id.Qualifier = mod
			sym.ReadCount++
			for _, arg := range ex.Args {
				c.checkExpr(scope, arg)
			}
			return sym.Type
		}
		a.Diags.Errorf(diag.NoSuchFunction, ex.Loc(), "no such function: %s", id.Name)
		for _, arg := range ex.Args {
			c.checkExpr(scope, arg)
		}
		return a.Types.Unknown()
	}
	c.checkExpr(scope, ex.Callee)
	for _, arg := range ex.Args {
		c.checkExpr(scope, arg)
	}
	return a.Types.Unknown()
}

// checkArraySizeInferable reports diag.CannotInferArraySize when te declares
// an array with neither a literal length nor an initializer to infer one
// from, since code generation must know an array's byte size to lay it out.
func (c *checker) checkArraySizeInferable(te *ast.TypeExpr, name string, loc source.Location) {
	if te != nil && te.Array && te.ArrayLen == nil {
		c.a.Diags.Errorf(diag.CannotInferArraySize, loc, "cannot infer the size of array %q: declare a length or provide an initializer", name)
	}
}

func (c *checker) requireAssignable(src, dst types.ID, loc source.Location) {
	if !c.a.Types.AssignableTo(src, dst) {
		c.a.Diags.Errorf(diag.TypeMismatch, loc, "cannot assign %s to %s", c.a.Types.Get(src), c.a.Types.Get(dst))
	}
}
