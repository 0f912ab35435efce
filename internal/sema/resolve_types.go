package sema

import (
	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/source"
	"github.com/blend65/blend65/internal/types"
)

func source0() source.Location { return source.Location{} }

// resolveType turns a parsed TypeExpr into an interned types.ID, resolving
// user type aliases and enum names against module-local and global tables.
// Unknown names report diag.UndefinedVariable (the closed taxonomy has no
// separate "unknown type" code, and an unresolved type name is, in effect,
// a reference to an undeclared symbol) and return types.Unknown so checking
// can continue without cascading.
func (a *Analyzer) resolveType(moduleName string, te *ast.TypeExpr) types.ID {
	if te == nil {
		return a.Types.Void()
	}
	var base types.ID
	switch te.Name {
	case "byte":
		base = a.Types.Byte()
	case "word":
		base = a.Types.Word()
	case "bool":
		base = a.Types.Bool()
	case "void":
		base = a.Types.Void()
	case "string":
		base = a.Types.Str()
	default:
		if id, ok := a.lookupAlias(moduleName, te.Name); ok {
			base = id
		} else {
			a.Diags.Errorf(diag.UndefinedVariable, te.Loc, "unknown type %q", te.Name)
			base = a.Types.Unknown()
		}
	}
	if te.Pointer {
		base = a.Types.Pointer(base)
	}
	if te.Array {
		length := -1
		if te.ArrayLen != nil {
			length = *te.ArrayLen
		}
		base = a.Types.Array(base, length)
	}
	return base
}

func (a *Analyzer) lookupAlias(moduleName, name string) (types.ID, bool) {
	if bucket, ok := a.aliases[moduleName]; ok {
		if id, ok := bucket[name]; ok {
			return id, true
		}
	}
	if bucket, ok := a.aliases["global"]; ok {
		if id, ok := bucket[name]; ok {
			return id, true
		}
	}
	return types.InvalidID, false
}

func (a *Analyzer) defineAlias(moduleName, name string, id types.ID) {
	bucket, ok := a.aliases[moduleName]
	if !ok {
		bucket = map[string]types.ID{}
		a.aliases[moduleName] = bucket
	}
	bucket[name] = id
}
