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

// Package parser implements Blend65's recursive-descent declaration/statement
// parser and Pratt expression parser, per spec.md §4.2.
package parser

import (
	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/source"
	"github.com/blend65/blend65/internal/token"
)

// Parser consumes a token stream for one file and produces a *ast.Program.
type Parser struct {
	file   string
	toks   []token.Token
	pos    int
	diags  *diag.Collector
	ids    ast.IDAllocator
	seenCode bool // whether we've emitted any non-declaration top-level item yet
}

func New(file string, toks []token.Token, diags *diag.Collector) *Parser {
	return &Parser{file: file, toks: toks, diags: diags}
}

func (p *Parser) next() ast.NodeID { return p.ids.Next() }

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k token.Kind, what string) token.Token {
	if p.check(k) {
		return p.advance()
	}
	t := p.cur()
	p.diags.Errorf(diag.ExpectedToken, t.Location, "expected %s, found %q", what, t.String())
	return t
}

// synchronize implements panic-mode recovery: skip tokens until the next
// statement boundary (semicolon, block-start, or a declaration keyword), per
// spec.md §4.2.
func (p *Parser) synchronize() {
	for !p.check(token.EOF) {
		if p.cur().Kind == token.Semicolon {
			p.advance()
			return
		}
		switch p.cur().Kind {
		case token.LBrace, token.KwFunction, token.KwLet, token.KwConst,
			token.KwType, token.KwEnum, token.KwIf, token.KwWhile, token.KwFor,
			token.KwReturn, token.KwEnd:
			return
		}
		p.advance()
	}
}

func loc(start, end token.Token) source.Location {
	return source.Span(start.Location, end.Location)
}

// ParseProgram parses one file to completion.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{Base: ast.Base{NodeID_: p.next()}, File: p.file}
	start := p.cur()

	if p.check(token.KwModule) {
		p.advance()
		name := p.expect(token.Identifier, "module name").Lexeme
		prog.ModuleName = name
		prog.ModuleExplicit = true
		p.match(token.Semicolon)
	} else {
		prog.ModuleName = "global"
		prog.ModuleExplicit = false
	}

	for !p.check(token.EOF) {
		if p.check(token.KwModule) {
			t := p.cur()
			if prog.ModuleExplicit {
				p.diags.Errorf(diag.DuplicateModule, t.Location, "only one module declaration is allowed per file")
			} else {
				p.diags.Errorf(diag.ModuleAfterImplicit, t.Location, "module declaration must be the first thing in the file")
			}
			p.advance()
			continue
		}
		if p.check(token.KwImport) {
			imp := p.parseImport()
			prog.Imports = append(prog.Imports, imp)
			if p.seenCode {
				p.diags.Errorf(diag.DeclarationAfterCode, imp.Loc(), "import must appear before any declaration")
			}
			continue
		}
		decl := p.parseTopLevelDecl()
		if decl != nil {
			prog.Declarations = append(prog.Declarations, decl)
		}
	}
	prog.Location_ = loc(start, p.cur())
	return prog
}

func (p *Parser) parseImport() *ast.ImportDecl {
	start := p.advance() // 'import'
	if p.check(token.Star) {
		t := p.advance()
		p.diags.Errorf(diag.WildcardInPath, t.Location, "wildcard imports are not supported")
	}
	name := p.expect(token.Identifier, "module name")
	imp := &ast.ImportDecl{Base: ast.Base{NodeID_: p.next()}, ModuleName: name.Lexeme}
	if p.match(token.LParen) {
		for !p.check(token.RParen) && !p.check(token.EOF) {
			sym := p.expect(token.Identifier, "imported symbol name")
			imp.Symbols = append(imp.Symbols, sym.Lexeme)
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RParen, "')'")
	}
	end := p.cur()
	p.match(token.Semicolon)
	imp.Location_ = loc(start, end)
	return imp
}

// parseTopLevelDecl parses one module-scope declaration. Module scope admits
// only declarations; a free-standing expression/call is an error, per
// spec.md §4.2.
func (p *Parser) parseTopLevelDecl() ast.Decl {
	exported := p.match(token.KwExport)
	switch p.cur().Kind {
	case token.KwFunction:
		p.seenCode = true
		return p.parseFunctionDecl(exported)
	case token.KwLet, token.KwConst:
		d := p.parseVariableDecl(exported)
		return d
	case token.KwType:
		return p.parseTypeAliasDecl(exported)
	case token.KwEnum:
		return p.parseEnumDecl(exported)
	case token.At:
		return p.parseMemoryMapDecl(exported)
	default:
		t := p.cur()
		if exported {
			p.diags.Errorf(diag.ExportRequiresDeclaration, t.Location, "'export' must be followed by a declaration")
		} else {
			p.diags.Errorf(diag.ExecutableAtModuleScope, t.Location, "only declarations are allowed at module scope, found %q", t.String())
		}
		p.advance()
		p.synchronize()
		return nil
	}
}

func (p *Parser) parseTypeExpr() *ast.TypeExpr {
	start := p.cur()
	pointer := p.match(token.Amp)
	name := p.expect(token.Identifier, "type name")
	te := &ast.TypeExpr{Name: name.Lexeme, Pointer: pointer}
	if p.match(token.LBracket) {
		te.Array = true
		if !p.check(token.RBracket) {
			n := p.expect(token.IntLiteral, "array length")
			v := int(n.IntValue)
			te.ArrayLen = &v
		}
		p.expect(token.RBracket, "']'")
	}
	te.Loc = loc(start, p.cur())
	return te
}

func (p *Parser) parseFunctionDecl(exported bool) *ast.FunctionDecl {
	start := p.advance() // 'function'
	name := p.expect(token.Identifier, "function name")
	fn := &ast.FunctionDecl{Base: ast.Base{NodeID_: p.next()}, Name: name.Lexeme, Exported: exported}

	p.expect(token.LParen, "'('")
	for !p.check(token.RParen) && !p.check(token.EOF) {
		pname := p.expect(token.Identifier, "parameter name")
		p.expect(token.Colon, "':'")
		ptype := p.parseTypeExpr()
		fn.Params = append(fn.Params, ast.Param{Name: pname.Lexeme, Type: ptype, Loc: pname.Location})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "')'")

	if p.match(token.Colon) {
		fn.ReturnType = p.parseTypeExpr()
	}

	if p.check(token.Semicolon) {
		// stub declaration (e.g. the `system` intrinsic module), empty body.
		p.advance()
		fn.IsStub = true
		fn.Location_ = loc(start, p.cur())
		return fn
	}

	fn.Body = p.parseBlockUntilEnd(token.KwFunction)
	end := p.cur()
	if p.check(token.KwEnd) {
		p.advance()
		p.match(token.KwFunction)
	} else {
		p.diags.Errorf(diag.MissingEndKeyword, end.Location, "missing 'end function'")
	}
	fn.Location_ = loc(start, end)
	return fn
}

// parseBlockUntilEnd parses statements until it sees `end`, `else`, `case`,
// `default`, or `next` (the various block terminators used across
// function/if/while/for/match bodies).
func (p *Parser) parseBlockUntilEnd(_ token.Kind) *ast.BlockStmt {
	start := p.cur()
	block := &ast.BlockStmt{Base: ast.Base{NodeID_: p.next()}}
	for !p.atBlockTerminator() {
		s := p.parseStatement()
		if s != nil {
			block.Stmts = append(block.Stmts, s)
		}
	}
	block.Location_ = loc(start, p.cur())
	return block
}

func (p *Parser) atBlockTerminator() bool {
	switch p.cur().Kind {
	case token.EOF, token.KwEnd, token.KwElse, token.KwCase, token.KwDefault, token.KwNext:
		return true
	default:
		return false
	}
}

func (p *Parser) parseVariableDecl(exported bool) *ast.VariableDecl {
	start := p.advance() // 'let' or 'const'
	isConst := start.Kind == token.KwConst

	name := p.expect(token.Identifier, "variable name")
	decl := &ast.VariableDecl{Base: ast.Base{NodeID_: p.next()}, Name: name.Lexeme, Exported: exported, IsConst: isConst}

	if p.match(token.Colon) {
		decl.Type = p.parseTypeExpr()
	}
	if p.match(token.At) {
		storage, addr := p.parseStorageClassWord()
		decl.Storage = storage
		decl.MappedAddr = addr
	}
	if p.match(token.Assign) {
		decl.Initializer = p.parseExpression()
	}
	if isConst && decl.Initializer == nil {
		p.diags.Errorf(diag.MissingConstInitializer, name.Location, "const %q requires an initializer",
			name.Lexeme)
	}
	end := p.cur()
	p.match(token.Semicolon)
	decl.Location_ = loc(start, end)
	return decl
}

// parseStorageClassWord parses the annotation following `@` in a storage
// declaration: `zeropage`, `ram`, `data`, or `map <address-expr>` for a
// memory-mapped variable, per spec.md §3.3/§3.4.
func (p *Parser) parseStorageClassWord() (ast.StorageClass, ast.Expr) {
	if p.check(token.Identifier) {
		switch p.cur().Lexeme {
		case "zeropage":
			p.advance()
			return ast.StorageZeroPage, nil
		case "ram":
			p.advance()
			return ast.StorageRAM, nil
		case "data":
			p.advance()
			return ast.StorageData, nil
		case "map":
			p.advance()
			return ast.StorageMap, p.parseExpression()
		}
		t := p.cur()
		p.diags.Errorf(diag.InvalidMemoryMapScope, t.Location, "unknown storage class %q", t.Lexeme)
		p.advance()
		return ast.StorageDefault, nil
	}
	t := p.cur()
	p.diags.Errorf(diag.InvalidMemoryMapScope, t.Location, "expected storage class after '@'")
	return ast.StorageDefault, nil
}

func (p *Parser) parseTypeAliasDecl(_ bool) *ast.TypeAliasDecl {
	start := p.advance() // 'type'
	name := p.expect(token.Identifier, "type alias name")
	p.expect(token.Assign, "'='")
	te := p.parseTypeExpr()
	end := p.cur()
	p.match(token.Semicolon)
	return &ast.TypeAliasDecl{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, end)}, Name: name.Lexeme, Type: te}
}

func (p *Parser) parseEnumDecl(exported bool) *ast.EnumDecl {
	start := p.advance() // 'enum'
	name := p.expect(token.Identifier, "enum name")
	decl := &ast.EnumDecl{Base: ast.Base{NodeID_: p.next()}, Name: name.Lexeme, Exported: exported}
	p.expect(token.LBrace, "'{'")
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		mName := p.expect(token.Identifier, "enum member name")
		m := ast.EnumMember{Name: mName.Lexeme, Loc: mName.Location}
		if p.match(token.Assign) {
			m.Value = p.parseExpression()
		}
		decl.Members = append(decl.Members, m)
		if !p.match(token.Comma) {
			break
		}
	}
	end := p.expect(token.RBrace, "'}'")
	decl.Location_ = loc(start, end)
	return decl
}

// parseMemoryMapDecl parses a module-scoped `@map` struct declaration
// binding a set of fields to consecutive offsets from a fixed base address,
// e.g.:
//
//	@map VicII at $D000 {
//	    border: byte;
//	    background: byte;
//	}
//
// per spec.md §3.4/§4.3d ("@map must be module-scoped with constant
// address").
func (p *Parser) parseMemoryMapDecl(_ bool) *ast.MemoryMapDecl {
	start := p.advance() // '@'
	mapKw := p.expect(token.Identifier, "'map'")
	if mapKw.Lexeme != "map" {
		p.diags.Errorf(diag.InvalidMemoryMapScope, mapKw.Location, "expected 'map' after '@' at module scope")
	}
	name := p.expect(token.Identifier, "memory map name")
	decl := &ast.MemoryMapDecl{Base: ast.Base{NodeID_: p.next()}, Name: name.Lexeme}

	if at := p.cur(); at.Kind == token.Identifier && at.Lexeme == "at" {
		p.advance()
	} else {
		p.diags.Errorf(diag.ExpectedToken, at.Location, "expected 'at' before memory map address")
	}
	decl.Address = p.parseExpression()

	p.expect(token.LBrace, "'{'")
	offset := 0
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		fname := p.expect(token.Identifier, "field name")
		p.expect(token.Colon, "':'")
		ftype := p.parseTypeExpr()
		decl.Fields = append(decl.Fields, ast.MemoryMapField{Name: fname.Lexeme, Type: ftype, Offset: offset, Loc: fname.Location})
		offset++ // refined to the type's real byte size during semantic analysis
		p.match(token.Semicolon)
	}
	end := p.expect(token.RBrace, "'}'")
	decl.Location_ = loc(start, end)
	return decl
}
