package generator

import (
	"fmt"

	"github.com/calumari/nimarm/internal/semantics"
)

// wordSize is the size of one stack slot.
const wordSize = 4

// frameOffset returns the symbol's byte offset from the frame pointer.
// Locals sit below fp in declaration order; parameters sit above it.
func frameOffset(sym *semantics.Symbol) int {
	if sym.IsParam {
		return wordSize * sym.Index
	}
	return -wordSize * (sym.Index + 1)
}

// resolve finds name in the active scope only.
func (g *Generator) resolve(name string) (*semantics.Symbol, error) {
	sym, ok := g.scope.ResolveLocally(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in scope %s", ErrUnresolvedVariable, name, g.scope.Name())
	}
	return sym, nil
}

// offsetOf resolves name and returns its frame offset.
func (g *Generator) offsetOf(name string) (int, error) {
	sym, err := g.resolve(name)
	if err != nil {
		return 0, err
	}
	return frameOffset(sym), nil
}
