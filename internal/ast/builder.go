package ast

import "fmt"

// Tree is an arena of nodes indexed by NodeID.
type Tree struct {
	nodes []Node // nodes[0] is unused so that ID 0 stays "not allocated"
	root  *Script
}

// Root returns the Script node, or nil if the builder never created one.
func (t *Tree) Root() *Script { return t.root }

// Len reports the number of allocated nodes.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// Node returns the node with the given ID.
func (t *Tree) Node(id NodeID) (Node, bool) {
	if id <= 0 || int(id) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

// Builder allocates nodes into a Tree. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	tree *Tree
}

func NewBuilder() *Builder {
	return &Builder{tree: &Tree{nodes: []Node{nil}}}
}

// Tree returns the tree built so far.
func (b *Builder) Tree() *Tree { return b.tree }

func (b *Builder) alloc(n Node, set func(NodeID)) {
	id := NodeID(len(b.tree.nodes))
	set(id)
	b.tree.nodes = append(b.tree.nodes, n)
}

// Script creates the root node. Calling it again replaces the tree's root.
func (b *Builder) Script(main *Main) *Script {
	n := &Script{Main: main}
	b.alloc(n, func(id NodeID) { n.id = id })
	b.tree.root = n
	return n
}

func (b *Builder) Main(body *Body) *Main {
	n := &Main{Body: body}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) Body(vars *VarBlock, block *Block) *Body {
	n := &Body{Vars: vars, Block: block}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) VarBlock(decls ...*VarDecl) *VarBlock {
	n := &VarBlock{Decls: decls}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

// VarDecl creates a declaration; init may be nil.
func (b *Builder) VarDecl(name string, init Expr) *VarDecl {
	n := &VarDecl{Name: name, Init: init}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) Block(stmts ...Stmt) *Block {
	n := &Block{Stmts: stmts}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) Assignment(name string, value Expr) *Assignment {
	n := &Assignment{Name: name, Value: value}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) Print(value Expr) *Print {
	n := &Print{Value: value}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

// If creates a conditional; elseBlock may be nil.
func (b *Builder) If(cond Expr, then, elseBlock *Block) *If {
	n := &If{Cond: cond, Then: then, Else: elseBlock}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) While(cond Expr, body *Block) *While {
	n := &While{Cond: cond, Body: body}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) Int(v int64) *IntLit {
	n := &IntLit{Value: v}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) Bool(v bool) *BoolLit {
	n := &BoolLit{Value: v}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) String(v string) *StringLit {
	n := &StringLit{Value: v}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) Ref(name string) *VarRef {
	n := &VarRef{Name: name}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) Parens(inner Expr) *Parens {
	n := &Parens{Inner: inner}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n
}

func (b *Builder) Unary(op UnaryOp, operand Expr) (*Unary, error) {
	if op != OpNot && op != OpNeg {
		return nil, fmt.Errorf("unknown unary operator %q", op)
	}
	n := &Unary{Op: op, Operand: operand}
	b.alloc(n, func(id NodeID) { n.id = id })
	return n, nil
}

// Binary creates the AddSub, MulDiv or Compare node matching op.
func (b *Builder) Binary(op BinaryOp, left, right Expr) (Expr, error) {
	switch op {
	case OpAdd, OpSub:
		n := &AddSub{Op: op, Left: left, Right: right}
		b.alloc(n, func(id NodeID) { n.id = id })
		return n, nil
	case OpMul, OpDiv:
		n := &MulDiv{Op: op, Left: left, Right: right}
		b.alloc(n, func(id NodeID) { n.id = id })
		return n, nil
	case OpLT, OpLE, OpEQ:
		n := &Compare{Op: op, Left: left, Right: right}
		b.alloc(n, func(id NodeID) { n.id = id })
		return n, nil
	}
	return nil, fmt.Errorf("unknown binary operator %q", op)
}

// MustBinary is Binary for operators known to be valid.
func (b *Builder) MustBinary(op BinaryOp, left, right Expr) Expr {
	n, err := b.Binary(op, left, right)
	if err != nil {
		panic(err)
	}
	return n
}

// MustUnary is Unary for operators known to be valid.
func (b *Builder) MustUnary(op UnaryOp, operand Expr) *Unary {
	n, err := b.Unary(op, operand)
	if err != nil {
		panic(err)
	}
	return n
}
