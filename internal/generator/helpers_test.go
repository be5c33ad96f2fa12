package generator

import (
	"context"
	"regexp"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/calumari/nimarm/internal/armsim"
	"github.com/calumari/nimarm/internal/ast"
	"github.com/calumari/nimarm/internal/semantics"
)

// fixture builds small programs by hand, playing the analyzer's part.
type fixture struct {
	b      *ast.Builder
	types  *semantics.Types
	global *semantics.Scope
	main   *semantics.Scope
	decls  []*ast.VarDecl
}

func newFixture() *fixture {
	global := semantics.NewScope("$global", nil)
	return &fixture{
		b:      ast.NewBuilder(),
		types:  semantics.NewTypes(),
		global: global,
		main:   semantics.NewScope(semantics.MainScopeName, global),
	}
}

// declare adds a local symbol and its declaration; init may be nil.
func (f *fixture) declare(t *testing.T, name string, typ semantics.PrimitiveType, init ast.Expr) {
	t.Helper()
	_, err := f.main.Define(name, typ)
	require.NoError(t, err)
	f.decls = append(f.decls, f.b.VarDecl(name, init))
}

func (f *fixture) typed(e ast.Expr, typ semantics.PrimitiveType) ast.Expr {
	f.types.Set(e, typ)
	return e
}

func (f *fixture) intLit(v int64) ast.Expr { return f.typed(f.b.Int(v), semantics.Int) }

func (f *fixture) boolLit(v bool) ast.Expr { return f.typed(f.b.Bool(v), semantics.Bool) }

func (f *fixture) strLit(v string) ast.Expr { return f.typed(f.b.String(v), semantics.String) }

func (f *fixture) ref(name string) ast.Expr {
	sym, ok := f.main.ResolveLocally(name)
	if !ok {
		return f.b.Ref(name)
	}
	return f.typed(f.b.Ref(name), sym.Type)
}

func (f *fixture) binary(op ast.BinaryOp, l, r ast.Expr, typ semantics.PrimitiveType) ast.Expr {
	return f.typed(f.b.MustBinary(op, l, r), typ)
}

func (f *fixture) print(e ast.Expr) ast.Stmt { return f.b.Print(e) }

func (f *fixture) script(stmts ...ast.Stmt) *ast.Script {
	return f.b.Script(f.b.Main(f.b.Body(f.b.VarBlock(f.decls...), f.b.Block(stmts...))))
}

func (f *fixture) generate(t *testing.T, stmts ...ast.Stmt) string {
	t.Helper()
	out, err := Generate(f.script(stmts...), f.global, f.types, Config{})
	require.NoError(t, err)
	return out
}

func execute(t *testing.T, asm string) *armsim.Result {
	t.Helper()
	res, err := armsim.Run(context.Background(), asm, armsim.Config{})
	require.NoError(t, err, "assembly:\n%s", asm)
	return res
}

var labelDef = regexp.MustCompile(`(?m)^([A-Za-z_.$][\w.$]*):`)

// requireUniqueLabels fails if any label is defined twice.
func requireUniqueLabels(t *testing.T, asm string) []string {
	t.Helper()
	seen := map[string]bool{}
	var labels []string
	for _, m := range labelDef.FindAllStringSubmatch(asm, -1) {
		require.False(t, seen[m[1]], "label %s defined twice", m[1])
		seen[m[1]] = true
		labels = append(labels, m[1])
	}
	return labels
}

// mainBody returns the code between the main and halt labels.
func mainBody(t *testing.T, asm string) string {
	t.Helper()
	m := regexp.MustCompile(`(?s)\nmain:\n(.*)\nhalt:\n`).FindStringSubmatch(asm)
	require.NotNil(t, m, "no main body in:\n%s", asm)
	return m[1] + "\n"
}

func requireText(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	t.Fatalf("output mismatch:\n%s", diff)
}
