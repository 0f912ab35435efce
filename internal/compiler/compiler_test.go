package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blend65/blend65/internal/config"
	"github.com/blend65/blend65/internal/diag"
)

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCompile_SimpleProgramSucceedsAndEmitsAssembly(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "game.b65", `
function main()
  let a: byte = 1;
  let b: byte = 2;
  let total: byte = a + b;
end function`)

	sess := NewSession(logrus.StandardLogger())
	res := sess.Compile(Request{Files: []string{path}, Config: config.CompilerOptions{Target: "c64", ExitBehavior: "loop"}})

	require.Equal(t, ExitSuccess, res.ExitCode, "diagnostics: %v", res.Diags)
	assert.Contains(t, res.Assembly, "* = $0801")
	assert.NotEmpty(t, res.SourceMap)
}

func TestCompile_NoFilesReturnsInvalidArgs(t *testing.T) {
	sess := NewSession(logrus.StandardLogger())
	res := sess.Compile(Request{})
	assert.Equal(t, ExitInvalidArgs, res.ExitCode)
}

func TestCompile_ParseErrorReturnsCompilationError(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "bad.b65", `function main( end function`)

	sess := NewSession(logrus.StandardLogger())
	res := sess.Compile(Request{Files: []string{path}, Config: config.CompilerOptions{Target: "c64"}})

	assert.Equal(t, ExitCompilationError, res.ExitCode)
	assert.NotEmpty(t, res.Diags)
}

func TestCompile_UnknownTargetReturnsInvalidArgs(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "game.b65", `function main() end function`)

	sess := NewSession(logrus.StandardLogger())
	res := sess.Compile(Request{Files: []string{path}, Config: config.CompilerOptions{Target: "nes"}})

	assert.Equal(t, ExitInvalidArgs, res.ExitCode)
}

// TestCompile_MapFieldAccessUsesDirectOffsetAddressing guards against
// @map field access going through the generic named-global load/store
// path: both the read of VicII.background and the write to
// VicII.border must address the field directly via a base+offset operand.
func TestCompile_MapFieldAccessUsesDirectOffsetAddressing(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "game.b65", `
@map VicII at $D000 {
  border: byte;
  background: byte;
}

function main()
  VicII.border = 1;
  let bg: byte = VicII.background;
end function`)

	sess := NewSession(logrus.StandardLogger())
	res := sess.Compile(Request{Files: []string{path}, Config: config.CompilerOptions{Target: "c64", ExitBehavior: "loop"}})
	require.Equal(t, ExitSuccess, res.ExitCode, "diagnostics: %v", res.Diags)

	assert.Contains(t, res.Assembly, "+1", "expected a direct base+offset operand for the second field: %s", res.Assembly)
}

// TestCompile_IndirectCallEmitsDiagnostic guards against genCall silently
// dropping a call through a non-identifier expression: the compiler must
// reject it with a clear diagnostic, not emit no code for the call at all.
func TestCompile_IndirectCallEmitsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "game.b65", `
function main()
  let handlers: byte[] = [1, 2];
  handlers[0]();
end function`)

	sess := NewSession(logrus.StandardLogger())
	res := sess.Compile(Request{Files: []string{path}, Config: config.CompilerOptions{Target: "c64", ExitBehavior: "loop"}})

	assert.Equal(t, ExitCompilationError, res.ExitCode)
	found := false
	for _, d := range res.Diags {
		if d.Code == diag.IndirectCallNotSupported {
			found = true
		}
	}
	assert.True(t, found, "expected IndirectCallNotSupported diagnostic: %v", res.Diags)
}

// TestCompile_IfElseAssignsSharedVariableResolvesPhi guards against a phi
// node silently emitting nothing in code generation: both the then- and
// else-branches assign x, so both predecessor blocks of the join block's
// phi must store into the same location before the function returns x.
func TestCompile_IfElseAssignsSharedVariableResolvesPhi(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "game.b65", `
function pick(cond: byte): byte
  let x: byte = 0;
  if cond == 1 then
    x = 11;
  else
    x = 22;
  end if
  return x;
end function`)

	sess := NewSession(logrus.StandardLogger())
	res := sess.Compile(Request{Files: []string{path}, Config: config.CompilerOptions{Target: "c64", ExitBehavior: "loop"}})
	require.Equal(t, ExitSuccess, res.ExitCode, "diagnostics: %v", res.Diags)

	stores := sameAddressStoreCount(res.Assembly)
	assert.GreaterOrEqual(t, stores, 2, "expected at least two `sta` writes into the phi's shared location, one per branch:\n%s", res.Assembly)
}

// sameAddressStoreCount finds the `sta $addr` target written to most often
// and returns how many times it was written.
func sameAddressStoreCount(asm string) int {
	counts := map[string]int{}
	for _, line := range strings.Split(asm, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "sta $") {
			continue
		}
		counts[line]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return max
}
