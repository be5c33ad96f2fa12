package program

import (
	"fmt"
	"math"
	"sort"

	"github.com/calumari/nimarm/internal/ast"
	"github.com/calumari/nimarm/internal/semantics"
)

// builder turns a decoded document into tree, annotations and scopes.
type builder struct {
	b     *ast.Builder
	types *semantics.Types
}

func newBuilder() *builder {
	return &builder{b: ast.NewBuilder(), types: semantics.NewTypes()}
}

func invalid(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, path, fmt.Sprintf(format, args...))
}

func (bl *builder) build(doc *document) (*Program, error) {
	global, err := bl.scopes(doc.Scopes)
	if err != nil {
		return nil, err
	}
	if doc.Main == nil {
		return nil, invalid("main", "missing entry block")
	}

	decls := make([]*ast.VarDecl, 0, len(doc.Main.Vars))
	for i, v := range doc.Main.Vars {
		path := fmt.Sprintf("main.vars[%d]", i)
		if v.Var == "" {
			return nil, invalid(path, "declaration without a name")
		}
		var init ast.Expr
		if v.Init != nil {
			if init, err = bl.expr(path+".init", v.Init); err != nil {
				return nil, err
			}
		}
		decls = append(decls, bl.b.VarDecl(v.Var, init))
	}
	vars := bl.b.VarBlock(decls...)
	block, err := bl.block("main.body", doc.Main.Body)
	if err != nil {
		return nil, err
	}
	script := bl.b.Script(bl.b.Main(bl.b.Body(vars, block)))

	return &Program{
		Tree:   bl.b.Tree(),
		Script: script,
		Types:  bl.types,
		Global: global,
	}, nil
}

// scopes creates the global scope and one child per document entry, symbols
// declared in list order. "$main" always exists.
func (bl *builder) scopes(docs map[string][]symbolDoc) (*semantics.Scope, error) {
	global := semantics.NewScope(GlobalScopeName, nil)
	if _, ok := docs[semantics.MainScopeName]; !ok {
		semantics.NewScope(semantics.MainScopeName, global)
	}
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		scope := semantics.NewScope(name, global)
		for i, sd := range docs[name] {
			path := fmt.Sprintf("scopes.%s[%d]", name, i)
			typ, err := semantics.ParseType(sd.Type)
			if err != nil {
				return nil, invalid(path, "%v", err)
			}
			if sd.Param {
				_, err = scope.DefineParam(sd.Name, typ)
			} else {
				_, err = scope.Define(sd.Name, typ)
			}
			if err != nil {
				return nil, invalid(path, "%v", err)
			}
		}
	}
	return global, nil
}

func (bl *builder) block(path string, docs []stmtDoc) (*ast.Block, error) {
	stmts := make([]ast.Stmt, 0, len(docs))
	for i := range docs {
		s, err := bl.stmt(fmt.Sprintf("%s[%d]", path, i), &docs[i])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return bl.b.Block(stmts...), nil
}

func (bl *builder) stmt(path string, d *stmtDoc) (ast.Stmt, error) {
	forms := 0
	for _, set := range []bool{d.Assign != nil, d.Print != nil, d.If != nil, d.While != nil} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return nil, invalid(path, "statement needs exactly one of assign, print, if, while")
	}
	if key := strayStmtKey(d); key != "" {
		return nil, invalid(path, "%s does not belong to this statement", key)
	}

	switch {
	case d.Assign != nil:
		if d.Value == nil {
			return nil, invalid(path, "assignment without a value")
		}
		if *d.Assign == "" {
			return nil, invalid(path, "assignment without a target")
		}
		v, err := bl.expr(path+".value", d.Value)
		if err != nil {
			return nil, err
		}
		return bl.b.Assignment(*d.Assign, v), nil

	case d.Print != nil:
		v, err := bl.expr(path+".print", d.Print)
		if err != nil {
			return nil, err
		}
		return bl.b.Print(v), nil

	case d.If != nil:
		cond, err := bl.expr(path+".if", d.If)
		if err != nil {
			return nil, err
		}
		then, err := bl.block(path+".then", d.Then)
		if err != nil {
			return nil, err
		}
		var elseBlock *ast.Block
		if d.Else != nil {
			if elseBlock, err = bl.block(path+".else", *d.Else); err != nil {
				return nil, err
			}
		}
		return bl.b.If(cond, then, elseBlock), nil

	default:
		cond, err := bl.expr(path+".while", d.While)
		if err != nil {
			return nil, err
		}
		body, err := bl.block(path+".do", d.Do)
		if err != nil {
			return nil, err
		}
		return bl.b.While(cond, body), nil
	}
}

// expr builds children before parents, so node IDs follow post-order.
func (bl *builder) expr(path string, d *exprDoc) (ast.Expr, error) {
	n, err := bl.exprNode(path, d)
	if err != nil {
		return nil, err
	}
	if d.Type != "" {
		typ, err := semantics.ParseType(d.Type)
		if err != nil {
			return nil, invalid(path, "%v", err)
		}
		bl.types.Set(n, typ)
	}
	return n, nil
}

// strayStmtKey names a key set on d that its statement form does not use.
func strayStmtKey(d *stmtDoc) string {
	allowed := map[string]bool{}
	switch {
	case d.Assign != nil:
		allowed["value"] = true
	case d.If != nil:
		allowed["then"], allowed["else"] = true, true
	case d.While != nil:
		allowed["do"] = true
	}
	for _, k := range []struct {
		name string
		set  bool
	}{
		{"value", d.Value != nil},
		{"then", d.Then != nil},
		{"else", d.Else != nil},
		{"do", d.Do != nil},
	} {
		if k.set && !allowed[k.name] {
			return k.name
		}
	}
	return ""
}

func (bl *builder) exprNode(path string, d *exprDoc) (ast.Expr, error) {
	forms := 0
	for _, set := range []bool{
		d.Int != nil, d.Bool != nil, d.String != nil, d.Ref != nil, d.Paren != nil,
		d.Operand != nil, d.Left != nil || d.Right != nil,
	} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return nil, invalid(path, "expression needs exactly one of int, bool, string, ref, paren, operand, left+right")
	}
	if d.Op != "" && d.Operand == nil && d.Left == nil && d.Right == nil {
		return nil, invalid(path, "op %q on an expression without operands", d.Op)
	}

	switch {
	case d.Int != nil:
		if *d.Int < math.MinInt32 || *d.Int > math.MaxUint32 {
			return nil, invalid(path+".int", "%d does not fit in 32 bits", *d.Int)
		}
		return bl.b.Int(*d.Int), nil
	case d.Bool != nil:
		return bl.b.Bool(*d.Bool), nil
	case d.String != nil:
		return bl.b.String(*d.String), nil
	case d.Ref != nil:
		if *d.Ref == "" {
			return nil, invalid(path, "empty variable reference")
		}
		return bl.b.Ref(*d.Ref), nil
	case d.Paren != nil:
		inner, err := bl.expr(path+".paren", d.Paren)
		if err != nil {
			return nil, err
		}
		return bl.b.Parens(inner), nil
	case d.Operand != nil:
		if d.Op == "" {
			return nil, invalid(path, "operand without op")
		}
		operand, err := bl.expr(path+".operand", d.Operand)
		if err != nil {
			return nil, err
		}
		n, err := bl.b.Unary(ast.UnaryOp(d.Op), operand)
		if err != nil {
			return nil, invalid(path, "%v", err)
		}
		return n, nil
	}
	if d.Op == "" || d.Left == nil || d.Right == nil {
		return nil, invalid(path, "binary expression needs op, left and right")
	}
	left, err := bl.expr(path+".left", d.Left)
	if err != nil {
		return nil, err
	}
	right, err := bl.expr(path+".right", d.Right)
	if err != nil {
		return nil, err
	}
	n, err := bl.b.Binary(ast.BinaryOp(d.Op), left, right)
	if err != nil {
		return nil, invalid(path, "%v", err)
	}
	return n, nil
}
