package generator

import (
	"fmt"
	"math"

	"github.com/calumari/nimarm/internal/ast"
	"github.com/calumari/nimarm/internal/semantics"
)

// maxMovImmediate is the largest value loaded with mov; wider or negative
// values go through the literal pool.
const maxMovImmediate = 0xFFFF

// genIntLit accepts any value that fits a 32-bit register, signed or
// unsigned; anything wider cannot be loaded without changing its value.
func (g *Generator) genIntLit(n *ast.IntLit) error {
	if n.Value < math.MinInt32 || n.Value > math.MaxUint32 {
		return fmt.Errorf("%w: %d in IntLit node #%d", ErrLiteralOutOfRange, n.Value, n.ID())
	}
	if n.Value >= 0 && n.Value <= maxMovImmediate {
		return g.emit(n, fmt.Sprintf("mov r0, #%d\n", n.Value))
	}
	return g.emit(n, fmt.Sprintf("ldr r0, =%d\n", n.Value))
}

func (g *Generator) genBoolLit(n *ast.BoolLit) error {
	v := 0
	if n.Value {
		v = 1
	}
	return g.emit(n, fmt.Sprintf("mov r0, #%d\n", v))
}

// genStringLit pools the literal now; only its address is loaded at runtime.
func (g *Generator) genStringLit(n *ast.StringLit) error {
	label := g.recordString(n.Value)
	return g.emit(n, fmt.Sprintf("ldr r0, =%s\n", label))
}

func (g *Generator) genVarRef(n *ast.VarRef) error {
	off, err := g.offsetOf(n.Name)
	if err != nil {
		return err
	}
	return g.emit(n, fmt.Sprintf("ldr r0, [fp, #%d]\n", off))
}

func (g *Generator) genParens(n *ast.Parens) error {
	if err := g.visit(n.Inner); err != nil {
		return err
	}
	inner, err := g.codeOf(n.Inner)
	if err != nil {
		return err
	}
	return g.emit(n, inner)
}

// genUnary relies on booleans being exactly 0 or 1, so "!" is a single-bit xor.
func (g *Generator) genUnary(n *ast.Unary) error {
	if err := g.visit(n.Operand); err != nil {
		return err
	}
	operand, err := g.codeOf(n.Operand)
	if err != nil {
		return err
	}
	var name string
	switch n.Op {
	case ast.OpNot:
		name = tmplNot
	case ast.OpNeg:
		name = tmplNeg
	default:
		return fmt.Errorf("unsupported unary operator %q", n.Op)
	}
	text, err := render(name, unaryModel{Operand: operand})
	if err != nil {
		return err
	}
	return g.emit(n, text)
}

// genAddSub is type-directed: "+" on strings concatenates into a fresh heap
// buffer, everything else is integer arithmetic.
func (g *Generator) genAddSub(n *ast.AddSub) error {
	if err := g.visitAll(n.Left, n.Right); err != nil {
		return err
	}
	codes, err := g.codesOf(n.Left, n.Right)
	if err != nil {
		return err
	}
	switch n.Op {
	case ast.OpAdd:
		typ, err := g.typeOf(n.Left)
		if err != nil {
			return err
		}
		if typ == semantics.String {
			text, err := render(tmplConcat, concatModel{Left: codes[0], Right: codes[1], AllocService: serviceAlloc})
			if err != nil {
				return err
			}
			return g.emit(n, text)
		}
		return g.emitBinary(n, "add", codes)
	case ast.OpSub:
		return g.emitBinary(n, "sub", codes)
	}
	return fmt.Errorf("unsupported additive operator %q", n.Op)
}

func (g *Generator) genMulDiv(n *ast.MulDiv) error {
	if err := g.visitAll(n.Left, n.Right); err != nil {
		return err
	}
	codes, err := g.codesOf(n.Left, n.Right)
	if err != nil {
		return err
	}
	switch n.Op {
	case ast.OpMul:
		return g.emitBinary(n, "mul", codes)
	case ast.OpDiv:
		return g.emitBinary(n, "sdiv", codes)
	}
	return fmt.Errorf("unsupported multiplicative operator %q", n.Op)
}

// emitBinary renders "left op right" with left in r1 and right in r0.
func (g *Generator) emitBinary(n ast.Node, op string, codes []string) error {
	text, err := render(tmplBinary, binaryModel{Op: op, Left: codes[0], Right: codes[1]})
	if err != nil {
		return err
	}
	return g.emit(n, text)
}

var compareBranches = map[ast.BinaryOp]string{
	ast.OpLT: "blt",
	ast.OpLE: "ble",
	ast.OpEQ: "beq",
}

// genCompare branches to a true or false arm that loads 1 or 0, converging on
// a shared end label. Labels come from the shared counter so sibling
// comparisons never clash.
func (g *Generator) genCompare(n *ast.Compare) error {
	branch, ok := compareBranches[n.Op]
	if !ok {
		return fmt.Errorf("unsupported comparison operator %q", n.Op)
	}
	if err := g.visitAll(n.Left, n.Right); err != nil {
		return err
	}
	codes, err := g.codesOf(n.Left, n.Right)
	if err != nil {
		return err
	}
	m := compareModel{
		Left:   codes[0],
		Right:  codes[1],
		Branch: branch,
		True:   g.labels.unique("true"),
		False:  g.labels.unique("false"),
		End:    g.labels.unique("end"),
	}
	text, err := render(tmplCompare, m)
	if err != nil {
		return err
	}
	return g.emit(n, text)
}
