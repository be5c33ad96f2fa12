package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/calumari/nimarm/internal/ast"
	"github.com/calumari/nimarm/internal/semantics"
)

// genMain enters the entry block's scope for the duration of its subtree.
// The enclosing scope is restored on every return path.
func (g *Generator) genMain(n *ast.Main) error {
	if n.Body == nil {
		return errors.New("entry block has no body")
	}
	child, ok := g.scope.ChildScopeNamed(semantics.MainScopeName)
	if !ok {
		return fmt.Errorf("scope %s has no %s child", g.scope.Name(), semantics.MainScopeName)
	}
	outer := g.scope
	g.scope = child
	g.log.Debug("enter scope", "scope", child.Name())
	defer func() {
		g.scope = outer
		g.log.Debug("exit scope", "scope", child.Name(), "restored", outer.Name())
	}()

	if err := g.visit(n.Body); err != nil {
		return err
	}
	body, err := g.codeOf(n.Body)
	if err != nil {
		return err
	}
	text, err := render(tmplMain, mainModel{Body: body})
	if err != nil {
		return err
	}
	return g.emit(n, text)
}

// genBody emits the declarations, which lay out the frame, then the statements.
func (g *Generator) genBody(n *ast.Body) error {
	if n.Vars == nil || n.Block == nil {
		return errors.New("body needs a variable block and a statement block")
	}
	if err := g.visitAll(n.Vars, n.Block); err != nil {
		return err
	}
	codes, err := g.codesOf(n.Vars, n.Block)
	if err != nil {
		return err
	}
	return g.emit(n, codes[0]+codes[1])
}

// genVarBlock concatenates declarations in source order. Each one pushes one
// word, so the i-th declaration must own symbol index i for the frame offsets
// to address its slot.
func (g *Generator) genVarBlock(n *ast.VarBlock) error {
	var sb strings.Builder
	for i, decl := range n.Decls {
		if decl == nil {
			return errors.New("nil declaration in variable block")
		}
		sym, err := g.resolve(decl.Name)
		if err != nil {
			return err
		}
		if sym.IsParam || sym.Index != i {
			return fmt.Errorf("%w: %q is declaration %d but symbol index %d (param=%t)",
				ErrFrameMismatch, decl.Name, i, sym.Index, sym.IsParam)
		}
		if err := g.visit(decl); err != nil {
			return err
		}
		text, err := g.codeOf(decl)
		if err != nil {
			return err
		}
		sb.WriteString(text)
	}
	return g.emit(n, sb.String())
}

// genVarDecl reserves the variable's slot by pushing r0. Without an
// initializer the slot holds whatever r0 happened to contain.
func (g *Generator) genVarDecl(n *ast.VarDecl) error {
	var init string
	if n.Init != nil {
		if err := g.visit(n.Init); err != nil {
			return err
		}
		var err error
		if init, err = g.codeOf(n.Init); err != nil {
			return err
		}
	}
	text, err := render(tmplVarDecl, varDeclModel{Init: init})
	if err != nil {
		return err
	}
	return g.emit(n, text)
}

func (g *Generator) genBlock(n *ast.Block) error {
	var sb strings.Builder
	for _, stmt := range n.Stmts {
		if err := g.visit(stmt); err != nil {
			return err
		}
		text, err := g.codeOf(stmt)
		if err != nil {
			return err
		}
		sb.WriteString(text)
	}
	return g.emit(n, sb.String())
}

func (g *Generator) genAssignment(n *ast.Assignment) error {
	if err := g.visit(n.Value); err != nil {
		return err
	}
	off, err := g.offsetOf(n.Name)
	if err != nil {
		return err
	}
	value, err := g.codeOf(n.Value)
	if err != nil {
		return err
	}
	text, err := render(tmplAssign, assignModel{Value: value, Offset: off})
	if err != nil {
		return err
	}
	return g.emit(n, text)
}

// genPrint picks the print service from the value's type. Booleans are
// first mapped to "true"/"false" so they print as words.
func (g *Generator) genPrint(n *ast.Print) error {
	if err := g.visit(n.Value); err != nil {
		return err
	}
	value, err := g.codeOf(n.Value)
	if err != nil {
		return err
	}
	typ, err := g.typeOf(n.Value)
	if err != nil {
		return err
	}
	var text string
	switch typ {
	case semantics.Bool:
		text, err = render(tmplPrintBool, printModel{Value: value, ServiceCode: servicePrintString})
	case semantics.Int:
		text, err = render(tmplPrint, printModel{Value: value, ServiceCode: servicePrintInt})
	case semantics.String:
		text, err = render(tmplPrint, printModel{Value: value, ServiceCode: servicePrintString})
	default:
		return fmt.Errorf("cannot print %s value of %s node #%d", typ, n.Value.Kind(), n.Value.ID())
	}
	if err != nil {
		return err
	}
	return g.emit(n, text)
}

// genIf jumps on a zero condition: past the block for the single-branch
// form, to the false block for the two-branch form. The true block falls
// through and then jumps over the false block.
func (g *Generator) genIf(n *ast.If) error {
	if n.Then == nil {
		return errors.New("if statement has no block")
	}
	nodes := []ast.Node{n.Cond, n.Then}
	if n.Else != nil {
		nodes = append(nodes, n.Else)
	}
	if err := g.visitAll(nodes...); err != nil {
		return err
	}
	codes, err := g.codesOf(nodes...)
	if err != nil {
		return err
	}

	var text string
	if n.Else == nil {
		text, err = render(tmplIf, ifModel{
			Cond:     codes[0],
			Then:     codes[1],
			EndLabel: g.labels.unique("endif"),
		})
	} else {
		text, err = render(tmplIfElse, ifModel{
			Cond:       codes[0],
			Then:       codes[1],
			Else:       codes[2],
			TrueLabel:  g.labels.unique("true"),
			FalseLabel: g.labels.unique("false"),
			EndLabel:   g.labels.unique("endif"),
		})
	}
	if err != nil {
		return err
	}
	return g.emit(n, text)
}

// genWhile re-evaluates the condition at the loop head on every iteration.
// Both labels are allocated once per loop node.
func (g *Generator) genWhile(n *ast.While) error {
	if n.Body == nil {
		return errors.New("while statement has no block")
	}
	if err := g.visitAll(n.Cond, n.Body); err != nil {
		return err
	}
	codes, err := g.codesOf(n.Cond, n.Body)
	if err != nil {
		return err
	}
	text, err := render(tmplWhile, whileModel{
		Head: g.labels.unique("while"),
		End:  g.labels.unique("endwhile"),
		Cond: codes[0],
		Body: codes[1],
	})
	if err != nil {
		return err
	}
	return g.emit(n, text)
}
