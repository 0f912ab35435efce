package sema

import (
	"testing"

	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/lexer"
	"github.com/blend65/blend65/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseModule(t *testing.T, file, src string) *ast.Program {
	t.Helper()
	d := diag.NewCollector()
	toks := lexer.New(file, src, d).Tokenize()
	prog := parser.New(file, toks, d).ParseProgram()
	require.False(t, d.HasErrors(), "unexpected parse errors: %v", d.All())
	return prog
}

func TestAnalyze_ByteArithmeticWidensToWord(t *testing.T) {
	prog := parseModule(t, "a.b65", `
function main()
  let a: byte = 200;
  let b: byte = 100;
  let total: word = a + b;
end function`)
	d := diag.NewCollector()
	res := NewAnalyzer(d).Analyze([]*ast.Program{prog})
	assert.False(t, d.HasErrors(), "%v", d.All())
	require.NotNil(t, res)
}

func TestAnalyze_ForLoopVariableWidensToWordBound(t *testing.T) {
	prog := parseModule(t, "a.b65", `
function main()
  let limit: word = 300;
  for i = 0 to limit
    let b: byte = i;
  end for
end function`)
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{prog})
	require.True(t, d.HasErrors(), "assigning the word-typed loop variable to a byte should fail")
	found := false
	for _, diagEntry := range d.All() {
		if diagEntry.Code == diag.TypeMismatch {
			found = true
		}
	}
	assert.True(t, found, "expected TypeMismatch from narrowing the word-bound loop variable into a byte: %v", d.All())
}

func TestAnalyze_UndefinedFunctionCallIsError(t *testing.T) {
	prog := parseModule(t, "a.b65", `
function main()
  frobnicate();
end function`)
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{prog})
	require.True(t, d.HasErrors())
	assert.Equal(t, diag.NoSuchFunction, d.All()[0].Code)
}

func TestAnalyze_CircularImportIsDetected(t *testing.T) {
	a := parseModule(t, "a.b65", "module a\nimport b\nfunction main() end function")
	b := parseModule(t, "b.b65", "module b\nimport a\nfunction f() end function")
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{a, b})
	require.True(t, d.HasErrors())
	var msg string
	found := false
	for _, diagEntry := range d.All() {
		if diagEntry.Code == diag.CircularImport {
			found = true
			msg = diagEntry.Message
		}
	}
	require.True(t, found)
	assert.Contains(t, msg, "a")
	assert.Contains(t, msg, "b")
	assert.Contains(t, msg, "→", "expected the full cycle chain, not just one module name")
}

func TestAnalyze_AssignToConstIsError(t *testing.T) {
	prog := parseModule(t, "a.b65", `
function main()
  const x: byte = 5;
  x = 6;
end function`)
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{prog})
	require.True(t, d.HasErrors())
	var codes []diag.Code
	for _, diagEntry := range d.All() {
		codes = append(codes, diagEntry.Code)
	}
	assert.Contains(t, codes, diag.AssignToConst)
}

func TestAnalyze_ImplicitMainExportWarns(t *testing.T) {
	prog := parseModule(t, "a.b65", "function main() end function")
	d := diag.NewCollector()
	res := NewAnalyzer(d).Analyze([]*ast.Program{prog})
	assert.False(t, d.HasErrors())
	require.NotNil(t, res.MainFunc)
	assert.True(t, res.MainFunc.Exported)
	found := false
	for _, diagEntry := range d.All() {
		if diagEntry.Code == diag.ImplicitMainExport {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyze_MissingMainIsError(t *testing.T) {
	prog := parseModule(t, "a.b65", "function helper() end function")
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{prog})
	require.True(t, d.HasErrors())
	var codes []diag.Code
	for _, diagEntry := range d.All() {
		codes = append(codes, diagEntry.Code)
	}
	assert.Contains(t, codes, diag.MissingMain)
}

func TestAnalyze_ArrayWithNoSizeOrInitializerIsError(t *testing.T) {
	prog := parseModule(t, "a.b65", `
function main()
  let arr: byte[];
end function`)
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{prog})
	require.True(t, d.HasErrors())
	var codes []diag.Code
	for _, diagEntry := range d.All() {
		codes = append(codes, diagEntry.Code)
	}
	assert.Contains(t, codes, diag.CannotInferArraySize)
}

func TestAnalyze_ArrayWithInitializerInfersSize(t *testing.T) {
	prog := parseModule(t, "a.b65", `
function main()
  let arr: byte[] = [1, 2, 3];
end function`)
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{prog})
	for _, diagEntry := range d.All() {
		assert.NotEqual(t, diag.CannotInferArraySize, diagEntry.Code)
	}
}

func TestAnalyze_LengthOfUnsizedArrayParamIsError(t *testing.T) {
	prog := parseModule(t, "a.b65", `
function helper(arr: byte[])
  let n: word = length(arr);
end function
function main()
end function`)
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{prog})
	require.True(t, d.HasErrors())
	var codes []diag.Code
	for _, diagEntry := range d.All() {
		codes = append(codes, diagEntry.Code)
	}
	assert.Contains(t, codes, diag.LengthUnknownSize)
}

func TestAnalyze_UnusedLocalWarns(t *testing.T) {
	prog := parseModule(t, "a.b65", `
function main()
  let unused: byte = 1;
end function`)
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{prog})
	assert.False(t, d.HasErrors())
}

func TestAnalyze_EnumMemberAutoIncrement(t *testing.T) {
	prog := parseModule(t, "a.b65", `
enum Color {
  Red,
  Green,
  Blue
}

function main()
  let c: Color = Color.Green;
end function`)
	d := diag.NewCollector()
	NewAnalyzer(d).Analyze([]*ast.Program{prog})
	assert.False(t, d.HasErrors(), "%v", d.All())
}
