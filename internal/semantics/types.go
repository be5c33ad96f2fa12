// Package semantics holds the semantic analyzer's results: the primitive type
// of every expression and the nested symbol scopes. The code generator treats
// both as frozen inputs.
package semantics

import (
	"fmt"

	"github.com/calumari/nimarm/internal/ast"
)

// PrimitiveType is the type assigned to an expression.
type PrimitiveType int

const (
	Invalid PrimitiveType = iota
	Int
	Bool
	String
)

func (t PrimitiveType) String() string {
	switch t {
	case Int:
		return "Int"
	case Bool:
		return "Bool"
	case String:
		return "String"
	}
	return "Invalid"
}

// ParseType maps a type name ("Int", "Bool", "String") to its PrimitiveType.
func ParseType(name string) (PrimitiveType, error) {
	switch name {
	case "Int":
		return Int, nil
	case "Bool":
		return Bool, nil
	case "String":
		return String, nil
	}
	return Invalid, fmt.Errorf("unknown type %q", name)
}

// Types is the type annotation map, keyed by node identity.
type Types struct {
	m map[ast.NodeID]PrimitiveType
}

func NewTypes() *Types {
	return &Types{m: make(map[ast.NodeID]PrimitiveType)}
}

// Set annotates a node. It is meant for the analyzer; the generator only reads.
func (t *Types) Set(n ast.Node, typ PrimitiveType) {
	t.m[n.ID()] = typ
}

// TypeOf returns the annotation for id.
func (t *Types) TypeOf(id ast.NodeID) (PrimitiveType, bool) {
	typ, ok := t.m[id]
	return typ, ok
}

// Len reports the number of annotated nodes.
func (t *Types) Len() int { return len(t.m) }
