// Package ast defines the syntax tree consumed by the code generator.
//
// Nodes are allocated through a Builder, which gives every node a stable
// NodeID. The generator keys its per-node results by that ID, so a node that
// was not allocated by a Builder (ID 0) cannot take part in generation.
package ast

import "fmt"

// NodeID identifies a node within its Tree. The zero value means "not
// allocated".
type NodeID int

// Kind enumerates the closed set of node variants.
type Kind int

const (
	KindInvalid Kind = iota
	KindScript
	KindMain
	KindBody
	KindVarBlock
	KindVarDecl
	KindBlock
	KindAssignment
	KindPrint
	KindIf
	KindWhile
	KindIntLit
	KindBoolLit
	KindStringLit
	KindVarRef
	KindParens
	KindUnary
	KindAddSub
	KindMulDiv
	KindCompare
)

var kindNames = [...]string{
	KindInvalid:    "Invalid",
	KindScript:     "Script",
	KindMain:       "Main",
	KindBody:       "Body",
	KindVarBlock:   "VarBlock",
	KindVarDecl:    "VarDecl",
	KindBlock:      "Block",
	KindAssignment: "Assignment",
	KindPrint:      "Print",
	KindIf:         "If",
	KindWhile:      "While",
	KindIntLit:     "IntLit",
	KindBoolLit:    "BoolLit",
	KindStringLit:  "StringLit",
	KindVarRef:     "VarRef",
	KindParens:     "Parens",
	KindUnary:      "Unary",
	KindAddSub:     "AddSub",
	KindMulDiv:     "MulDiv",
	KindCompare:    "Compare",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Node is implemented by every tree node.
type Node interface {
	ID() NodeID
	Kind() Kind
}

// Expr is an expression node. Every expression leaves its value in the
// primary register once its code has run.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node appearing inside a Block.
type Stmt interface {
	Node
	stmtNode()
}

type node struct{ id NodeID }

func (n *node) ID() NodeID { return n.id }

// Script is the root of a program.
type Script struct {
	node
	Main *Main
}

// Main is the program's single entry block. It owns the "$main" scope.
type Main struct {
	node
	Body *Body
}

// Body holds the entry block's declarations followed by its statements.
type Body struct {
	node
	Vars  *VarBlock
	Block *Block
}

// VarBlock lists declarations in source order.
type VarBlock struct {
	node
	Decls []*VarDecl
}

// VarDecl declares a local. Init is nil when the declaration has no
// initializer.
type VarDecl struct {
	node
	Name string
	Init Expr
}

// Block is a sequence of statements.
type Block struct {
	node
	Stmts []Stmt
}

type Assignment struct {
	node
	Name  string
	Value Expr
}

type Print struct {
	node
	Value Expr
}

// If is a conditional. Else is nil for the single-branch form.
type If struct {
	node
	Cond Expr
	Then *Block
	Else *Block
}

type While struct {
	node
	Cond Expr
	Body *Block
}

type IntLit struct {
	node
	Value int64
}

type BoolLit struct {
	node
	Value bool
}

// StringLit holds the literal's value without surrounding quotes.
type StringLit struct {
	node
	Value string
}

type VarRef struct {
	node
	Name string
}

type Parens struct {
	node
	Inner Expr
}

// UnaryOp is "!" (logical not) or "-" (arithmetic negation).
type UnaryOp string

const (
	OpNot UnaryOp = "!"
	OpNeg UnaryOp = "-"
)

type Unary struct {
	node
	Op      UnaryOp
	Operand Expr
}

// BinaryOp covers the arithmetic and comparison operators.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpLT  BinaryOp = "<"
	OpLE  BinaryOp = "<="
	OpEQ  BinaryOp = "=="
)

// AddSub is "+" or "-". On strings "+" is concatenation.
type AddSub struct {
	node
	Op          BinaryOp
	Left, Right Expr
}

type MulDiv struct {
	node
	Op          BinaryOp
	Left, Right Expr
}

type Compare struct {
	node
	Op          BinaryOp
	Left, Right Expr
}

func (*Script) Kind() Kind     { return KindScript }
func (*Main) Kind() Kind       { return KindMain }
func (*Body) Kind() Kind       { return KindBody }
func (*VarBlock) Kind() Kind   { return KindVarBlock }
func (*VarDecl) Kind() Kind    { return KindVarDecl }
func (*Block) Kind() Kind      { return KindBlock }
func (*Assignment) Kind() Kind { return KindAssignment }
func (*Print) Kind() Kind      { return KindPrint }
func (*If) Kind() Kind         { return KindIf }
func (*While) Kind() Kind      { return KindWhile }
func (*IntLit) Kind() Kind     { return KindIntLit }
func (*BoolLit) Kind() Kind    { return KindBoolLit }
func (*StringLit) Kind() Kind  { return KindStringLit }
func (*VarRef) Kind() Kind     { return KindVarRef }
func (*Parens) Kind() Kind     { return KindParens }
func (*Unary) Kind() Kind      { return KindUnary }
func (*AddSub) Kind() Kind     { return KindAddSub }
func (*MulDiv) Kind() Kind     { return KindMulDiv }
func (*Compare) Kind() Kind    { return KindCompare }

func (*Assignment) stmtNode() {}
func (*Print) stmtNode()      {}
func (*If) stmtNode()         {}
func (*While) stmtNode()      {}

func (*IntLit) exprNode()    {}
func (*BoolLit) exprNode()   {}
func (*StringLit) exprNode() {}
func (*VarRef) exprNode()    {}
func (*Parens) exprNode()    {}
func (*Unary) exprNode()     {}
func (*AddSub) exprNode()    {}
func (*MulDiv) exprNode()    {}
func (*Compare) exprNode()   {}
