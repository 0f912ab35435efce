// Package source defines the position and location types shared by every
// later stage of the pipeline: tokens, AST nodes, symbols, IL instructions,
// and diagnostics all carry a SourceLocation back to this package.
package source

import "fmt"

// Position is a single point in a source file.
type Position struct {
	File   string
	Line   int // 1-based
	Column int // 1-based
	Offset int // 0-based byte offset
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// IsZero reports whether p was never set.
func (p Position) IsZero() bool {
	return p.File == "" && p.Line == 0 && p.Column == 0 && p.Offset == 0
}

// Location is a half-open span [Start, End) plus the original source text
// that produced it, when available. Text is optional and mainly useful for
// diagnostics and the lexer round-trip property.
type Location struct {
	Start Position
	End   Position
	Text  string
}

func (l Location) String() string {
	if l.Start.File == l.End.File && l.Start.Line == l.End.Line {
		return fmt.Sprintf("%s:%d:%d-%d", l.Start.File, l.Start.Line, l.Start.Column, l.End.Column)
	}
	return fmt.Sprintf("%s-%s", l.Start, l.End)
}

// IsZero reports whether l was never set.
func (l Location) IsZero() bool {
	return l.Start.IsZero() && l.End.IsZero()
}

// Span returns a Location covering both a and b, taking the earlier start
// and the later end. Used when merging child-node locations into a parent.
func Span(a, b Location) Location {
	start := a.Start
	end := b.End
	if b.Start.Offset < a.Start.Offset {
		start = b.Start
	}
	if a.End.Offset > b.End.Offset {
		end = a.End
	}
	return Location{Start: start, End: end}
}
