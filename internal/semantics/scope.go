package semantics

import (
	"fmt"
	"sort"
	"strings"
)

// MainScopeName names the scope owned by the program's entry block.
const MainScopeName = "$main"

// Symbol describes one declared name. Index is the 0-based declaration order
// among the scope's locals, or among its parameters when IsParam is set.
type Symbol struct {
	Name    string
	Index   int
	IsParam bool
	Type    PrimitiveType
}

// Scope maps names to symbols and links to its enclosing and child scopes.
type Scope struct {
	name      string
	enclosing *Scope
	symbols   map[string]*Symbol
	children  map[string]*Scope
	locals    int
	params    int
}

// NewScope creates a scope. When enclosing is non-nil the new scope is
// registered as its child under name.
func NewScope(name string, enclosing *Scope) *Scope {
	s := &Scope{
		name:      name,
		enclosing: enclosing,
		symbols:   make(map[string]*Symbol),
		children:  make(map[string]*Scope),
	}
	if enclosing != nil {
		enclosing.children[name] = s
	}
	return s
}

func (s *Scope) Name() string { return s.name }

// Enclosing returns the parent scope, nil for the root.
func (s *Scope) Enclosing() *Scope { return s.enclosing }

// ChildScopeNamed returns the direct child called name.
func (s *Scope) ChildScopeNamed(name string) (*Scope, bool) {
	c, ok := s.children[name]
	return c, ok
}

// Define declares a local. Its index is the number of locals declared before it.
func (s *Scope) Define(name string, typ PrimitiveType) (*Symbol, error) {
	if _, exists := s.symbols[name]; exists {
		return nil, fmt.Errorf("symbol %q already declared in scope %s", name, s.name)
	}
	sym := &Symbol{Name: name, Index: s.locals, Type: typ}
	s.locals++
	s.symbols[name] = sym
	return sym, nil
}

// DefineParam declares a parameter. Parameters are indexed separately from locals.
func (s *Scope) DefineParam(name string, typ PrimitiveType) (*Symbol, error) {
	if _, exists := s.symbols[name]; exists {
		return nil, fmt.Errorf("symbol %q already declared in scope %s", name, s.name)
	}
	sym := &Symbol{Name: name, Index: s.params, IsParam: true, Type: typ}
	s.params++
	s.symbols[name] = sym
	return sym, nil
}

// ResolveLocally looks name up in this scope only; enclosing scopes are not
// searched.
func (s *Scope) ResolveLocally(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Symbols returns the scope's symbols, parameters first, each group in index order.
func (s *Scope) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(s.symbols))
	for _, sym := range s.symbols {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsParam != out[j].IsParam {
			return out[i].IsParam
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// String returns a deterministic dump of the scope tree.
func (s *Scope) String() string {
	var sb strings.Builder
	s.dump(&sb, 0)
	return sb.String()
}

func (s *Scope) dump(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%sscope %s\n", indent, s.name)
	for _, sym := range s.Symbols() {
		kind := "local"
		if sym.IsParam {
			kind = "param"
		}
		fmt.Fprintf(sb, "%s  %-12s %s #%d %s\n", indent, sym.Name, kind, sym.Index, sym.Type)
	}
	names := make([]string, 0, len(s.children))
	for name := range s.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.children[name].dump(sb, depth+1)
	}
}
