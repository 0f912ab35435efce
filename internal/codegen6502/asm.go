package codegen6502

import (
	"fmt"
	"strings"

	"github.com/blend65/blend65/internal/source"
)

// SourceMapEntry annotates one emitted assembly line with the IL
// instruction's originating source location and, when known, the symbol it
// came from — spec.md §6's "side map from generated-line -> source-location
// ... when --debug is set", the source-map supplement recorded in
// SPEC_FULL.md §12.
type SourceMapEntry struct {
	Line     int
	Location source.Location
	Symbol   string
}

// Builder accumulates assembly text plus its source map, grounded on the
// teacher's bytes.Buffer-based assembly accumulation
// (m6502_backend.go's Generate/generateFunction).
type Builder struct {
	lines     []string
	sourceMap []SourceMapEntry
}

func NewBuilder() *Builder { return &Builder{} }

// Line appends a raw assembly line with no source-map entry (headers,
// section comments, helper routines).
func (b *Builder) Line(format string, args ...any) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

// Emit appends an instruction line and records its source-map entry.
func (b *Builder) Emit(loc source.Location, symbol, format string, args ...any) {
	b.lines = append(b.lines, "    "+fmt.Sprintf(format, args...))
	b.sourceMap = append(b.sourceMap, SourceMapEntry{Line: len(b.lines), Location: loc, Symbol: symbol})
}

// Label appends a label declaration.
func (b *Builder) Label(name string) {
	b.lines = append(b.lines, name+":")
}

// Comment appends a comment-only line, used for barrier markers and
// no-merge annotations on volatile accesses.
func (b *Builder) Comment(format string, args ...any) {
	b.lines = append(b.lines, "    ; "+fmt.Sprintf(format, args...))
}

func (b *Builder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

func (b *Builder) SourceMap() []SourceMapEntry {
	return b.sourceMap
}
