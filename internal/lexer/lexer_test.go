package lexer

import (
	"testing"

	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/token"
	"github.com/stretchr/testify/assert"
)

func tokenize(t *testing.T, src string) ([]token.Token, *diag.Collector) {
	t.Helper()
	d := diag.NewCollector()
	toks := New("test.b65", src, d).Tokenize()
	return toks, d
}

func TestTokenize_Keywords(t *testing.T) {
	toks, d := tokenize(t, "function end if then else while")
	assert.False(t, d.HasErrors())
	kinds := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.KwFunction, token.KwEnd, token.KwIf, token.KwThen, token.KwElse, token.KwWhile, token.EOF,
	}, kinds)
}

func TestTokenize_IntegerLiterals(t *testing.T) {
	tests := []struct {
		src      string
		value    uint16
		wantKind token.IntValueKind
	}{
		{"255", 255, token.IntByte},
		{"256", 256, token.IntWord},
		{"65535", 65535, token.IntWord},
		{"$FF", 0xFF, token.IntByte},
		{"0xFF", 0xFF, token.IntByte},
		{"0b101", 5, token.IntByte},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks, d := tokenize(t, tt.src)
			assert.False(t, d.HasErrors())
			assert.Equal(t, token.IntLiteral, toks[0].Kind)
			assert.Equal(t, tt.value, toks[0].IntValue)
			assert.Equal(t, tt.wantKind, toks[0].IntKind)
		})
	}
}

func TestTokenize_IntegerOverflow(t *testing.T) {
	_, d := tokenize(t, "65536")
	assert.True(t, d.HasErrors())
	assert.Equal(t, diag.InvalidNumberLiteral, d.All()[0].Code)
}

func TestTokenize_String(t *testing.T) {
	toks, d := tokenize(t, `"hello\nworld"`)
	assert.False(t, d.HasErrors())
	assert.Equal(t, token.StringLiteral, toks[0].Kind)
	assert.Equal(t, "hello\nworld", toks[0].StrValue)
}

func TestTokenize_UnterminatedString(t *testing.T) {
	_, d := tokenize(t, `"hello`)
	assert.True(t, d.HasErrors())
	assert.Equal(t, diag.UnterminatedString, d.All()[0].Code)
}

func TestTokenize_CompoundAssignAndAt(t *testing.T) {
	toks, d := tokenize(t, "x += 1 @ y")
	assert.False(t, d.HasErrors())
	assert.Equal(t, token.Identifier, toks[0].Kind)
	assert.Equal(t, token.PlusAssign, toks[1].Kind)
	assert.Equal(t, token.IntLiteral, toks[2].Kind)
	assert.Equal(t, token.At, toks[3].Kind)
}

func TestTokenize_CommentsSkipped(t *testing.T) {
	toks, d := tokenize(t, "let x = 1 // trailing comment\nlet y = 2")
	assert.False(t, d.HasErrors())
	var idents int
	for _, tok := range toks {
		if tok.Kind == token.Identifier {
			idents++
		}
	}
	assert.Equal(t, 2, idents)
}

func TestTokenize_IllegalCharacterRecovers(t *testing.T) {
	toks, d := tokenize(t, "let x = 1 ` let y = 2")
	assert.True(t, d.HasErrors())
	// lexing continues after the illegal character and still finds `y`.
	found := false
	for _, tok := range toks {
		if tok.Kind == token.Identifier && tok.Lexeme == "y" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTokenize_RoundTripLexemesCoverSource(t *testing.T) {
	src := "let x: byte = 2 + 3;"
	toks, d := tokenize(t, src)
	assert.False(t, d.HasErrors())
	var total int
	for _, tok := range toks {
		total += len(tok.Lexeme)
	}
	assert.LessOrEqual(t, total, len(src))
}
