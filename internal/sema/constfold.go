package sema

import "github.com/blend65/blend65/internal/ast"

// foldConstInt evaluates e as a compile-time integer constant, used for
// enum member values and `@map ... at <addr>` declarations. Returns false
// if e is not foldable at this stage (e.g. it references a non-const
// symbol); the caller keeps whatever default applies.
func (a *Analyzer) foldConstInt(moduleName string, e ast.Expr) (int, bool) {
	switch ex := e.(type) {
	case *ast.LiteralExpr:
		if ex.LitKind == ast.LitByte || ex.LitKind == ast.LitWord {
			return int(ex.Int), true
		}
		return 0, false
	case *ast.UnaryExpr:
		v, ok := a.foldConstInt(moduleName, ex.Operand)
		if !ok {
			return 0, false
		}
		switch ex.Op {
		case ast.OpNeg:
			return -v, true
		case ast.OpBitNot:
			return ^v, true
		default:
			return 0, false
		}
	case *ast.BinaryExpr:
		l, lok := a.foldConstInt(moduleName, ex.Left)
		r, rok := a.foldConstInt(moduleName, ex.Right)
		if !lok || !rok {
			return 0, false
		}
		switch ex.Op {
		case ast.OpAdd:
			return l + r, true
		case ast.OpSub:
			return l - r, true
		case ast.OpMul:
			return l * r, true
		case ast.OpDiv:
			if r == 0 {
				return 0, false
			}
			return l / r, true
		case ast.OpOr:
			return l | r, true
		case ast.OpAnd:
			return l & r, true
		case ast.OpXor:
			return l ^ r, true
		case ast.OpShl:
			return l << uint(r), true
		case ast.OpShr:
			return l >> uint(r), true
		default:
			return 0, false
		}
	default:
		return 0, false
	}
}
