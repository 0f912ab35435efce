package parser

import (
	"testing"

	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) (*ast.Program, *diag.Collector) {
	t.Helper()
	d := diag.NewCollector()
	toks := lexer.New("test.b65", src, d).Tokenize()
	prog := New("test.b65", toks, d).ParseProgram()
	return prog, d
}

func TestParseProgram_ImplicitGlobalModule(t *testing.T) {
	prog, d := parse(t, "function main() end function")
	assert.False(t, d.HasErrors())
	assert.Equal(t, "global", prog.ModuleName)
	assert.False(t, prog.ModuleExplicit)
	require.Len(t, prog.Declarations, 1)
	fn, ok := prog.Declarations[0].(*ast.FunctionDecl)
	require.True(t, ok)
	assert.Equal(t, "main", fn.Name)
}

func TestParseProgram_ExplicitModule(t *testing.T) {
	prog, d := parse(t, "module mathlib\nexport function add(a: byte, b: byte): byte return a + b; end function")
	assert.False(t, d.HasErrors())
	assert.Equal(t, "mathlib", prog.ModuleName)
	assert.True(t, prog.ModuleExplicit)
	fn := prog.Declarations[0].(*ast.FunctionDecl)
	assert.True(t, fn.Exported)
	assert.Len(t, fn.Params, 2)
}

func TestParseProgram_DuplicateModuleIsError(t *testing.T) {
	_, d := parse(t, "module a\nmodule b\nfunction main() end function")
	assert.True(t, d.HasErrors())
	assert.Equal(t, diag.DuplicateModule, d.All()[0].Code)
}

func TestParseVariableDecl_ConstRequiresInitializer(t *testing.T) {
	_, d := parse(t, "const x: byte;")
	assert.True(t, d.HasErrors())
	assert.Equal(t, diag.MissingConstInitializer, d.All()[0].Code)
}

func TestParseVariableDecl_ArrayLiteralInferredSize(t *testing.T) {
	prog, d := parse(t, "let colors: byte[] = [2, 5, 6];")
	assert.False(t, d.HasErrors())
	decl := prog.Declarations[0].(*ast.VariableDecl)
	assert.True(t, decl.Type.Array)
	assert.Nil(t, decl.Type.ArrayLen)
	lit, ok := decl.Initializer.(*ast.ArrayLiteralExpr)
	require.True(t, ok)
	assert.Len(t, lit.Elements, 3)
}

func TestParseExpression_PrecedenceClimbing(t *testing.T) {
	prog, d := parse(t, "let x: byte = 2 + 3 * 4;")
	assert.False(t, d.HasErrors())
	decl := prog.Declarations[0].(*ast.VariableDecl)
	bin := decl.Initializer.(*ast.BinaryExpr)
	assert.Equal(t, ast.OpAdd, bin.Op)
	rhs := bin.Right.(*ast.BinaryExpr)
	assert.Equal(t, ast.OpMul, rhs.Op)
}

func TestParseExpression_RightAssociativeAssignment(t *testing.T) {
	prog, d := parse(t, "function f() let x: byte = 0; let y: byte = 0; x = y = 1; end function")
	assert.False(t, d.HasErrors())
	fn := prog.Declarations[0].(*ast.FunctionDecl)
	exprStmt := fn.Body.Stmts[2].(*ast.ExprStmt)
	assign := exprStmt.X.(*ast.AssignExpr)
	_, ok := assign.Value.(*ast.AssignExpr)
	assert.True(t, ok, "assignment should be right-associative")
}

func TestParseExpression_UnaryAddressOf(t *testing.T) {
	prog, d := parse(t, "function f() let x: byte = 0; let y: &byte = @x; end function")
	assert.False(t, d.HasErrors())
	fn := prog.Declarations[0].(*ast.FunctionDecl)
	decl := fn.Body.Stmts[1].(*ast.DeclStmt).Decl
	unary := decl.Initializer.(*ast.UnaryExpr)
	assert.Equal(t, ast.OpAddressOf, unary.Op)
}

func TestParseStatement_IfElseIfChain(t *testing.T) {
	prog, d := parse(t, `function f(x: byte): byte
if x == 1 then
  return 1;
else if x == 2 then
  return 2;
else
  return 3;
end if
end function`)
	assert.False(t, d.HasErrors())
	fn := prog.Declarations[0].(*ast.FunctionDecl)
	ifs := fn.Body.Stmts[0].(*ast.IfStmt)
	elseIf, ok := ifs.Else.(*ast.IfStmt)
	require.True(t, ok)
	assert.NotNil(t, elseIf.Else)
}

func TestParseStatement_ForLoop(t *testing.T) {
	prog, d := parse(t, "function f() for i = 0 to 9 end for end function")
	assert.False(t, d.HasErrors())
	fn := prog.Declarations[0].(*ast.FunctionDecl)
	forStmt := fn.Body.Stmts[0].(*ast.ForStmt)
	assert.Equal(t, "i", forStmt.Var)
	assert.Nil(t, forStmt.Step)
}

func TestParseTopLevel_ExecutableStatementIsError(t *testing.T) {
	_, d := parse(t, "foo();")
	assert.True(t, d.HasErrors())
	assert.Equal(t, diag.ExecutableAtModuleScope, d.All()[0].Code)
}

func TestParseMemoryMapDecl(t *testing.T) {
	prog, d := parse(t, "@map VicII at $D000 { border: byte; background: byte; }")
	assert.False(t, d.HasErrors())
	m := prog.Declarations[0].(*ast.MemoryMapDecl)
	assert.Equal(t, "VicII", m.Name)
	assert.Len(t, m.Fields, 2)
}
