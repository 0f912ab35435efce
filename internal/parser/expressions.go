package parser

import (
	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/token"
)

// precedence implements the 13-level table from spec.md §4.2, lowest to
// highest. Assignment is handled separately (right-associative, parsed as
// its own top call) since it is not a normal left-associative binary level.
type precedence int

const (
	precNone precedence = iota
	precLogicalOr
	precLogicalAnd
	precBitwiseOr
	precBitwiseXor
	precBitwiseAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

type binopInfo struct {
	op   ast.BinaryOp
	prec precedence
}

var binops = map[token.Kind]binopInfo{
	token.PipePipe: {ast.OpLogicalOr, precLogicalOr},
	token.KwOr:     {ast.OpLogicalOr, precLogicalOr},
	token.AmpAmp:   {ast.OpLogicalAnd, precLogicalAnd},
	token.KwAnd:    {ast.OpLogicalAnd, precLogicalAnd},
	token.Pipe:     {ast.OpOr, precBitwiseOr},
	token.Caret:    {ast.OpXor, precBitwiseXor},
	token.Amp:      {ast.OpAnd, precBitwiseAnd},
	token.Eq:       {ast.OpEq, precEquality},
	token.Ne:       {ast.OpNe, precEquality},
	token.Lt:       {ast.OpLt, precRelational},
	token.Le:       {ast.OpLe, precRelational},
	token.Gt:       {ast.OpGt, precRelational},
	token.Ge:       {ast.OpGe, precRelational},
	token.Shl:      {ast.OpShl, precShift},
	token.Shr:      {ast.OpShr, precShift},
	token.Plus:     {ast.OpAdd, precAdditive},
	token.Minus:    {ast.OpSub, precAdditive},
	token.Star:     {ast.OpMul, precMultiplicative},
	token.Slash:    {ast.OpDiv, precMultiplicative},
	token.Percent:  {ast.OpMod, precMultiplicative},
}

var compoundAssignOps = map[token.Kind]ast.AssignOp{
	token.PlusAssign:  ast.AssignAdd,
	token.MinusAssign: ast.AssignSub,
	token.StarAssign:  ast.AssignMul,
	token.SlashAssign: ast.AssignDiv,
	token.AmpAssign:   ast.AssignAnd,
	token.PipeAssign:  ast.AssignOr,
	token.CaretAssign: ast.AssignXor,
}

// parseExpression is the entry point: assignment is right-associative and
// sits below every other level, so it is parsed first and recurses into
// parseBinary for its right-hand side.
func (p *Parser) parseExpression() ast.Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expr {
	start := p.cur()
	lhs := p.parseTernary()

	if p.check(token.Assign) {
		p.advance()
		rhs := p.parseAssignment() // right-associative
		return &ast.AssignExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, p.prevLocToken())}, Op: ast.AssignPlain, Target: lhs, Value: rhs}
	}
	if opKind, ok := compoundAssignOps[p.cur().Kind]; ok {
		p.advance()
		rhs := p.parseAssignment()
		return &ast.AssignExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, p.prevLocToken())}, Op: opKind, Target: lhs, Value: rhs}
	}
	return lhs
}

// prevLocToken returns the most recently consumed token, used to compute an
// end location after advance() has already moved past it.
func (p *Parser) prevLocToken() token.Token {
	if p.pos == 0 {
		return p.cur()
	}
	return p.toks[p.pos-1]
}

func (p *Parser) parseTernary() ast.Expr {
	start := p.cur()
	cond := p.parseBinary(precLogicalOr)
	if p.match(token.Question) {
		thenE := p.parseExpression()
		p.expect(token.Colon, "':'")
		elseE := p.parseExpression()
		return &ast.TernaryExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, p.prevLocToken())}, Cond: cond, Then: thenE, Else: elseE}
	}
	return cond
}

// parseBinary implements precedence-climbing over the binops table: each
// call handles every level >= min, recursing with min+1 for the right
// operand so same-precedence chains stay left-associative.
func (p *Parser) parseBinary(min precedence) ast.Expr {
	left := p.parseUnary()
	for {
		info, ok := binops[p.cur().Kind]
		if !ok || info.prec < min {
			return left
		}
		opTok := p.advance()
		right := p.parseBinary(info.prec + 1)
		left = &ast.BinaryExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(tokenAt(left), opTok)}, Op: info.op, Left: left, Right: right}
	}
}

// tokenAt recovers a synthetic token wrapping a node's start location, so
// loc() (which takes two tokens) can be reused when merging into an
// already-built expression.
func tokenAt(n ast.Node) token.Token {
	return token.Token{Location: n.Loc()}
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.cur()
	switch p.cur().Kind {
	case token.Minus:
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, p.prevLocToken())}, Op: ast.OpNeg, Operand: operand}
	case token.Bang, token.KwNot:
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, p.prevLocToken())}, Op: ast.OpNot, Operand: operand}
	case token.Tilde:
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, p.prevLocToken())}, Op: ast.OpBitNot, Operand: operand}
	case token.At:
		// address-of: same precedence level as -/!/~, per spec.md §9's open
		// question resolved in favor of the simplest reading of the source.
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, p.prevLocToken())}, Op: ast.OpAddressOf, Operand: operand}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	start := p.cur()
	e := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case token.LParen:
			p.advance()
			var args []ast.Expr
			for !p.check(token.RParen) && !p.check(token.EOF) {
				args = append(args, p.parseExpression())
				if !p.match(token.Comma) {
					break
				}
			}
			end := p.expect(token.RParen, "')'")
			e = &ast.CallExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, end)}, Callee: e, Args: args}
		case token.LBracket:
			p.advance()
			idx := p.parseExpression()
			end := p.expect(token.RBracket, "']'")
			e = &ast.IndexExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, end)}, Array: e, Index: idx}
		case token.Dot:
			p.advance()
			field := p.expect(token.Identifier, "field name")
			e = &ast.MemberExpr{Base: ast.Base{NodeID_: p.next(), Location_: loc(start, field)}, Object: e, Field: field.Lexeme}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.IntLiteral:
		p.advance()
		kind := ast.LitByte
		if t.IntKind == token.IntWord {
			kind = ast.LitWord
		}
		return &ast.LiteralExpr{Base: ast.Base{NodeID_: p.next(), Location_: t.Location}, LitKind: kind, Int: t.IntValue}
	case token.TrueLiteral:
		p.advance()
		return &ast.LiteralExpr{Base: ast.Base{NodeID_: p.next(), Location_: t.Location}, LitKind: ast.LitBool, Bool: true}
	case token.FalseLiteral:
		p.advance()
		return &ast.LiteralExpr{Base: ast.Base{NodeID_: p.next(), Location_: t.Location}, LitKind: ast.LitBool, Bool: false}
	case token.StringLiteral:
		p.advance()
		return &ast.LiteralExpr{Base: ast.Base{NodeID_: p.next(), Location_: t.Location}, LitKind: ast.LitString, Str: t.StrValue}
	case token.Identifier:
		// Module-qualified references (e.g. "mathlib.add") are not
		// disambiguated here: a bare Dot after an identifier is always
		// parsed as MemberExpr by parsePostfix, and sema's symbol resolver
		// rewrites a MemberExpr whose object names an imported module into
		// a qualified function/variable reference.
		p.advance()
		return &ast.IdentifierExpr{Base: ast.Base{NodeID_: p.next(), Location_: t.Location}, Name: t.Lexeme}
	case token.LParen:
		p.advance()
		e := p.parseExpression()
		p.expect(token.RParen, "')'")
		return e
	case token.LBracket:
		return p.parseArrayLiteral()
	default:
		p.diags.Errorf(diag.UnexpectedToken, t.Location, "unexpected token %q in expression", t.String())
		p.advance()
		return &ast.LiteralExpr{Base: ast.Base{NodeID_: p.next(), Location_: t.Location}, LitKind: ast.LitByte}
	}
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	start := p.advance() // '['
	lit := &ast.ArrayLiteralExpr{Base: ast.Base{NodeID_: p.next()}}
	for !p.check(token.RBracket) && !p.check(token.EOF) {
		lit.Elements = append(lit.Elements, p.parseExpression())
		if !p.match(token.Comma) {
			break
		}
	}
	end := p.expect(token.RBracket, "']'")
	lit.Location_ = loc(start, end)
	return lit
}
