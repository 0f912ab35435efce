package symbols

import "fmt"

// GlobalSymbolTable aggregates every module's exports and resolves
// cross-module references, per spec.md §3.3/§4.3-5.
type GlobalSymbolTable struct {
	GlobalScope *Scope
	modules     map[string]*Table
	// exports[module][name] holds the exported symbol, rewritten so that
	// importers see the same *Symbol the defining module declared.
	exports map[string]map[string]*Symbol
}

func NewGlobalSymbolTable() *GlobalSymbolTable {
	return &GlobalSymbolTable{
		GlobalScope: NewScope(ScopeGlobal, "", nil),
		modules:     map[string]*Table{},
		exports:     map[string]map[string]*Symbol{},
	}
}

func (g *GlobalSymbolTable) RegisterModule(name string, table *Table) {
	g.modules[name] = table
	bucket := map[string]*Symbol{}
	for _, sym := range table.ModuleScope.All() {
		if sym.IsExported {
			bucket[sym.Name] = sym
		}
	}
	g.exports[name] = bucket
}

func (g *GlobalSymbolTable) Module(name string) (*Table, bool) {
	t, ok := g.modules[name]
	return t, ok
}

// Resolve looks up name as exported by module. Used for qualified
// references ("module.name") after import rewriting.
func (g *GlobalSymbolTable) Resolve(module, name string) (*Symbol, bool) {
	bucket, ok := g.exports[module]
	if !ok {
		return nil, false
	}
	sym, ok := bucket[name]
	return sym, ok
}

// ResolveUnqualified looks up name as exported by any of the modules listed
// in importedModules (the current module's import list), in order; the
// first match wins. Used for unqualified references to an imported symbol.
func (g *GlobalSymbolTable) ResolveUnqualified(importedModules []string, name string) (*Symbol, string, bool) {
	for _, m := range importedModules {
		if sym, ok := g.Resolve(m, name); ok {
			return sym, m, true
		}
	}
	return nil, "", false
}

func (g *GlobalSymbolTable) String() string {
	return fmt.Sprintf("GlobalSymbolTable{modules=%d}", len(g.modules))
}
