package parser

import (
	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/token"
)

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur().Kind {
	case token.KwLet, token.KwConst:
		d := p.parseVariableDecl(false)
		return &ast.DeclStmt{Base: ast.Base{NodeID_: p.next(), Location_: d.Loc()}, Decl: d}
	case token.KwIf:
		return p.parseIfStmt()
	case token.KwWhile:
		return p.parseWhileStmt()
	case token.KwFor:
		return p.parseForStmt()
	case token.KwMatch:
		return p.parseMatchStmt()
	case token.KwBreak:
		t := p.advance()
		p.match(token.Semicolon)
		return &ast.BreakStmt{Base: ast.Base{NodeID_: p.next(), Location_: t.Location}}
	case token.KwContinue:
		t := p.advance()
		p.match(token.Semicolon)
		return &ast.ContinueStmt{Base: ast.Base{NodeID_: p.next(), Location_: t.Location}}
	case token.KwReturn:
		return p.parseReturnStmt()
	case token.KwAsm:
		return p.parseAsmStmt()
	case token.LBrace:
		return p.parseBraceBlock()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseBraceBlock() *ast.BlockStmt {
	start := p.advance() // '{'
	block := &ast.BlockStmt{Base: ast.Base{NodeID_: p.next()}}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		s := p.parseStatement()
		if s != nil {
			block.Stmts = append(block.Stmts, s)
		}
	}
	end := p.expect(token.RBrace, "'}'")
	block.Location_ = loc(start, end)
	return block
}

func (p *Parser) parseExprStmt() ast.Stmt {
	start := p.cur()
	e := p.parseExpression()
	end := p.cur()
	p.match(token.Semicolon)
	return &ast.ExprStmt{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, end)}, X: e}
}

func (p *Parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // 'if'
	cond := p.parseExpression()
	p.match(token.KwThen)
	stmt := &ast.IfStmt{Base: ast.Base{NodeID_: p.next()}, Cond: cond}
	stmt.Then = p.parseBlockUntilEnd(token.KwIf)
	if p.check(token.KwElse) {
		p.advance()
		if p.check(token.KwIf) {
			stmt.Else = p.parseIfStmt()
			stmt.Location_ = loc(start, p.cur())
			return stmt
		}
		stmt.Else = p.parseBlockUntilEnd(token.KwIf)
	}
	end := p.cur()
	if p.check(token.KwEnd) {
		p.advance()
		p.match(token.KwIf)
	} else {
		p.diags.Errorf(diag.MissingEndKeyword, end.Location, "missing 'end if'")
	}
	stmt.Location_ = loc(start, end)
	return stmt
}

func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	start := p.advance() // 'while'
	cond := p.parseExpression()
	body := p.parseBlockUntilEnd(token.KwWhile)
	end := p.cur()
	if p.check(token.KwEnd) {
		p.advance()
		p.match(token.KwWhile)
	} else {
		p.diags.Errorf(diag.MissingEndKeyword, end.Location, "missing 'end while'")
	}
	return &ast.WhileStmt{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, end)}, Cond: cond, Body: body}
}

func (p *Parser) parseForStmt() *ast.ForStmt {
	start := p.advance() // 'for'
	varTok := p.expect(token.Identifier, "loop variable name")
	p.expect(token.Assign, "'='")
	begin := p.parseExpression()
	p.expect(token.KwTo, "'to'")
	endExpr := p.parseExpression()
	var step ast.Expr
	if p.match(token.KwStep) {
		step = p.parseExpression()
	}
	body := p.parseBlockUntilEnd(token.KwFor)
	endTok := p.cur()
	if p.check(token.KwEnd) {
		p.advance()
		p.match(token.KwFor)
	} else if p.check(token.KwNext) {
		p.advance()
	} else {
		p.diags.Errorf(diag.MissingEndKeyword, endTok.Location, "missing 'end for'/'next'")
	}
	return &ast.ForStmt{
		Base:       ast.Base{NodeID_: p.next(), Location_: loc(start, endTok)},
		Var:        varTok.Lexeme,
		VarDeclLoc: varTok.Location,
		Start:      begin,
		End:        endExpr,
		Step:       step,
		Body:       body,
	}
}

func (p *Parser) parseMatchStmt() *ast.MatchStmt {
	start := p.advance() // 'match'
	subject := p.parseExpression()
	stmt := &ast.MatchStmt{Base: ast.Base{NodeID_: p.next()}, Subject: subject}
	for p.check(token.KwCase) || p.check(token.KwDefault) {
		if p.check(token.KwDefault) {
			p.advance()
			body := p.parseBlockUntilEnd(token.KwMatch)
			stmt.Cases = append(stmt.Cases, ast.MatchCase{Default: true, Body: body})
			continue
		}
		p.advance() // 'case'
		c := ast.MatchCase{}
		for {
			c.Values = append(c.Values, p.parseExpression())
			if !p.match(token.Comma) {
				break
			}
		}
		c.Body = p.parseBlockUntilEnd(token.KwMatch)
		stmt.Cases = append(stmt.Cases, c)
	}
	end := p.cur()
	if p.check(token.KwEnd) {
		p.advance()
		p.match(token.KwMatch)
	} else {
		p.diags.Errorf(diag.MissingEndKeyword, end.Location, "missing 'end match'")
	}
	stmt.Location_ = loc(start, end)
	return stmt
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // 'return'
	var val ast.Expr
	if !p.check(token.Semicolon) && !p.atBlockTerminator() {
		val = p.parseExpression()
	}
	end := p.cur()
	p.match(token.Semicolon)
	return &ast.ReturnStmt{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, end)}, Value: val}
}

func (p *Parser) parseAsmStmt() *ast.AsmStmt {
	start := p.advance() // 'asm'
	p.expect(token.LBrace, "'{'")
	var lines []string
	var cur []byte
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		t := p.advance()
		if t.Kind == token.Semicolon {
			lines = append(lines, string(cur))
			cur = nil
			continue
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, t.Lexeme...)
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	end := p.expect(token.RBrace, "'}'")
	return &ast.AsmStmt{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, end)}, Lines: lines}
}
