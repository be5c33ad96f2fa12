// Package generator turns an annotated Nimble syntax tree into ARM assembly.
//
// Code is synthesized bottom-up: a node's text is produced only after all of
// its children's text is in the code table, and every expression leaves its
// value in r0 with the stack pointer as it found it.
package generator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/calumari/nimarm/internal/ast"
	"github.com/calumari/nimarm/internal/semantics"
)

// TypeTable is the analyzer's read-only type annotation map.
type TypeTable interface {
	TypeOf(id ast.NodeID) (semantics.PrimitiveType, bool)
}

// Generator holds the state of one generation run.
type Generator struct {
	cfg    Config
	log    *slog.Logger
	types  TypeTable
	scope  *semantics.Scope
	code   map[ast.NodeID]string
	labels labelAllocator
	pool   stringPool
	used   bool
}

// New returns a generator for one run. global is the outermost scope; the
// entry block's scope must be its "$main" child.
func New(global *semantics.Scope, types TypeTable, cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		cfg:   cfg,
		log:   logger,
		types: types,
		scope: global,
		code:  make(map[ast.NodeID]string),
	}
}

// Generate runs a fresh Generator over script.
func Generate(script *ast.Script, global *semantics.Scope, types TypeTable, cfg Config) (string, error) {
	return New(global, types, cfg).Generate(script)
}

// Generate synthesizes the assembly for script. On failure no output is
// returned. A Generator can only be used once.
func (g *Generator) Generate(script *ast.Script) (string, error) {
	if g.used {
		return "", ErrGeneratorReused
	}
	g.used = true
	if script == nil {
		return "", errors.New("nil script")
	}
	if g.scope == nil || g.types == nil {
		return "", errors.New("generator needs a scope and a type table")
	}
	if err := ensureTemplates(); err != nil {
		return "", err
	}
	if err := g.visit(script); err != nil {
		return "", err
	}
	out, err := g.codeOf(script)
	if err != nil {
		return "", err
	}
	g.log.Debug("generated program",
		"nodes", len(g.code),
		"labels", g.labels.next,
		"strings", len(g.pool.entries),
		"bytes", len(out))
	return out, nil
}

// visit synthesizes n and, first, everything below it.
func (g *Generator) visit(n ast.Node) error {
	if n == nil {
		return errors.New("nil node in tree")
	}
	if n.ID() == 0 {
		return fmt.Errorf("%s node was not allocated by an ast.Builder", n.Kind())
	}
	switch n := n.(type) {
	case *ast.Script:
		return g.genScript(n)
	case *ast.Main:
		return g.genMain(n)
	case *ast.Body:
		return g.genBody(n)
	case *ast.VarBlock:
		return g.genVarBlock(n)
	case *ast.VarDecl:
		return g.genVarDecl(n)
	case *ast.Block:
		return g.genBlock(n)
	case *ast.Assignment:
		return g.genAssignment(n)
	case *ast.Print:
		return g.genPrint(n)
	case *ast.If:
		return g.genIf(n)
	case *ast.While:
		return g.genWhile(n)
	case *ast.IntLit:
		return g.genIntLit(n)
	case *ast.BoolLit:
		return g.genBoolLit(n)
	case *ast.StringLit:
		return g.genStringLit(n)
	case *ast.VarRef:
		return g.genVarRef(n)
	case *ast.Parens:
		return g.genParens(n)
	case *ast.Unary:
		return g.genUnary(n)
	case *ast.AddSub:
		return g.genAddSub(n)
	case *ast.MulDiv:
		return g.genMulDiv(n)
	case *ast.Compare:
		return g.genCompare(n)
	}
	return fmt.Errorf("unsupported node %T", n)
}

// visitAll visits nodes left to right.
func (g *Generator) visitAll(nodes ...ast.Node) error {
	for _, n := range nodes {
		if err := g.visit(n); err != nil {
			return err
		}
	}
	return nil
}

// emit records n's code. Each node is written exactly once.
func (g *Generator) emit(n ast.Node, text string) error {
	if _, done := g.code[n.ID()]; done {
		return fmt.Errorf("code for %s node #%d generated twice", n.Kind(), n.ID())
	}
	if g.cfg.Debug && n.Kind() != ast.KindScript {
		text = fmt.Sprintf("/* %s #%d */\n", n.Kind(), n.ID()) + text
	}
	g.code[n.ID()] = text
	return nil
}

// codeOf returns the code already synthesized for n.
func (g *Generator) codeOf(n ast.Node) (string, error) {
	text, ok := g.code[n.ID()]
	if !ok {
		return "", fmt.Errorf("code for %s node #%d read before it was generated", n.Kind(), n.ID())
	}
	return text, nil
}

// codesOf is codeOf over several nodes.
func (g *Generator) codesOf(nodes ...ast.Node) ([]string, error) {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		text, err := g.codeOf(n)
		if err != nil {
			return nil, err
		}
		out[i] = text
	}
	return out, nil
}

// typeOf returns e's annotation.
func (g *Generator) typeOf(e ast.Expr) (semantics.PrimitiveType, error) {
	typ, ok := g.types.TypeOf(e.ID())
	if !ok {
		return semantics.Invalid, fmt.Errorf("%w: %s node #%d", ErrMissingTypeAnnotation, e.Kind(), e.ID())
	}
	return typ, nil
}
