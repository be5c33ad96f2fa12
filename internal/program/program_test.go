package program

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calumari/nimarm/internal/ast"
	"github.com/calumari/nimarm/internal/semantics"
)

const sample = `
scopes:
  $main:
    - {name: n, type: Int, param: true}
    - {name: x, type: Int}
    - {name: s, type: String}
main:
  vars:
    - var: x
      init: {op: "+", left: {int: 3, type: Int}, right: {int: 4, type: Int}, type: Int}
    - {var: s, init: {string: "a\nb", type: String}}
  body:
    - print: {ref: x, type: Int}
    - if: {op: "<", left: {ref: x}, right: {int: 3}, type: Bool}
      then:
        - assign: x
          value: {op: "-", operand: {int: 1}}
      else: []
    - while: {bool: false}
      do:
        - print: {paren: {ref: s, type: String}, type: String}
`

func decode(t *testing.T, src string) *Program {
	t.Helper()
	p, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	return p
}

func TestDecode(t *testing.T) {
	t.Run("tree shape", func(t *testing.T) {
		p := decode(t, sample)
		require.Same(t, p.Script, p.Tree.Root())

		body := p.Script.Main.Body
		require.Len(t, body.Vars.Decls, 2)
		require.Equal(t, "x", body.Vars.Decls[0].Name)
		sum, ok := body.Vars.Decls[0].Init.(*ast.AddSub)
		require.True(t, ok)
		require.Equal(t, ast.OpAdd, sum.Op)
		require.Equal(t, "a\nb", body.Vars.Decls[1].Init.(*ast.StringLit).Value)

		stmts := body.Block.Stmts
		require.Len(t, stmts, 3)
		require.IsType(t, &ast.Print{}, stmts[0])

		ifStmt := stmts[1].(*ast.If)
		require.IsType(t, &ast.Compare{}, ifStmt.Cond)
		require.NotNil(t, ifStmt.Else, "an empty else list is still an else block")
		require.Empty(t, ifStmt.Else.Stmts)
		assign := ifStmt.Then.Stmts[0].(*ast.Assignment)
		require.Equal(t, "x", assign.Name)
		require.Equal(t, ast.OpNeg, assign.Value.(*ast.Unary).Op)

		loop := stmts[2].(*ast.While)
		require.IsType(t, &ast.BoolLit{}, loop.Cond)
		require.IsType(t, &ast.Parens{}, loop.Body.Stmts[0].(*ast.Print).Value)
	})

	t.Run("annotations", func(t *testing.T) {
		p := decode(t, sample)
		init := p.Script.Main.Body.Vars.Decls[0].Init
		typ, ok := p.Types.TypeOf(init.ID())
		require.True(t, ok)
		require.Equal(t, semantics.Int, typ)

		cmp := p.Script.Main.Body.Block.Stmts[1].(*ast.If).Cond.(*ast.Compare)
		_, ok = p.Types.TypeOf(cmp.Left.ID())
		require.False(t, ok, "omitted annotations stay absent")
	})

	t.Run("children are allocated before parents", func(t *testing.T) {
		p := decode(t, sample)
		sum := p.Script.Main.Body.Vars.Decls[0].Init.(*ast.AddSub)
		require.Less(t, sum.Left.ID(), sum.Right.ID())
		require.Less(t, sum.Right.ID(), sum.ID())
		require.Equal(t, p.Script.ID(), ast.NodeID(p.Tree.Len()))
	})

	t.Run("scopes", func(t *testing.T) {
		p := decode(t, sample)
		require.Equal(t, GlobalScopeName, p.Global.Name())
		main, ok := p.Global.ChildScopeNamed(semantics.MainScopeName)
		require.True(t, ok)

		n, ok := main.ResolveLocally("n")
		require.True(t, ok)
		require.True(t, n.IsParam)
		require.Equal(t, 0, n.Index)
		s, ok := main.ResolveLocally("s")
		require.True(t, ok)
		require.False(t, s.IsParam)
		require.Equal(t, 1, s.Index)
		require.Equal(t, semantics.String, s.Type)
	})

	t.Run("integers at the 32-bit bounds", func(t *testing.T) {
		p := decode(t, "main:\n  body:\n    - print: {int: -2147483648}\n    - print: {int: 4294967295}\n")
		stmts := p.Script.Main.Body.Block.Stmts
		require.Equal(t, int64(math.MinInt32), stmts[0].(*ast.Print).Value.(*ast.IntLit).Value)
		require.Equal(t, int64(math.MaxUint32), stmts[1].(*ast.Print).Value.(*ast.IntLit).Value)
	})

	t.Run("main scope exists without symbols", func(t *testing.T) {
		p := decode(t, "main:\n  body:\n    - print: {int: 1, type: Int}\n")
		_, ok := p.Global.ChildScopeNamed(semantics.MainScopeName)
		require.True(t, ok)
	})

	t.Run("extra scopes hang off the global scope", func(t *testing.T) {
		p := decode(t, "scopes:\n  helper:\n    - {name: a, type: Bool}\nmain: {}\n")
		helper, ok := p.Global.ChildScopeNamed("helper")
		require.True(t, ok)
		_, ok = helper.ResolveLocally("a")
		require.True(t, ok)
	})
}

func TestDecodeInvalid(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"empty", "", "empty document"},
		{"unknown field", "main: {}\nextra: 1\n", "field extra not found"},
		{"no main", "scopes: {}\n", "main: missing entry block"},
		{"bad type", "scopes:\n  $main:\n    - {name: x, type: Float}\nmain: {}\n", "scopes.$main[0]"},
		{"duplicate symbol", "scopes:\n  $main:\n    - {name: x, type: Int}\n    - {name: x, type: Int}\nmain: {}\n", "scopes.$main[1]"},
		{"unnamed declaration", "main:\n  vars:\n    - {init: {int: 1}}\n", "main.vars[0]: declaration without a name"},
		{"two statement forms", "main:\n  body:\n    - {print: {int: 1}, while: {bool: true}}\n", "main.body[0]: statement needs exactly one"},
		{"no statement form", "main:\n  body:\n    - {}\n", "main.body[0]"},
		{"assignment without value", "main:\n  body:\n    - {assign: x}\n", "assignment without a value"},
		{"empty expression", "main:\n  body:\n    - print: {type: Int}\n", "main.body[0].print: expression needs exactly one"},
		{"two expression forms", "main:\n  body:\n    - print: {int: 1, ref: x}\n", "main.body[0].print: expression needs exactly one"},
		{"operator on a literal", "main:\n  body:\n    - print: {op: \"-\", int: 1}\n", "op \"-\" on an expression without operands"},
		{"operand without op", "main:\n  body:\n    - print: {operand: {int: 1}}\n", "operand without op"},
		{"left without right", "main:\n  body:\n    - print: {op: \"+\", left: {int: 1}}\n", "binary expression needs op, left and right"},
		{"integer wider than 32 bits", "main:\n  body:\n    - print: {int: 4294967296}\n", "main.body[0].print.int: 4294967296 does not fit in 32 bits"},
		{"integer below the signed range", "main:\n  body:\n    - print: {int: -2147483649}\n", "main.body[0].print.int"},
		{"then on a while", "main:\n  body:\n    - while: {bool: true}\n      then: []\n", "main.body[0]: then does not belong to this statement"},
		{"do on an if", "main:\n  body:\n    - if: {bool: true}\n      do: []\n", "do does not belong"},
		{"value on a print", "main:\n  body:\n    - print: {int: 1}\n      value: {int: 2}\n", "value does not belong"},
		{"else on an assignment", "main:\n  body:\n    - assign: x\n      value: {int: 1}\n      else: []\n", "else does not belong"},
		{"unknown operator", "main:\n  body:\n    - print: {op: \"%\", left: {int: 1}, right: {int: 2}}\n", "main.body[0].print"},
		{"nested path", "main:\n  body:\n    - while: {bool: true}\n      do:\n        - if: {ref: \"\"}\n", "main.body[0].do[0].if: empty variable reference"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(c.src))
			require.ErrorIs(t, err, ErrInvalidDocument)
			require.ErrorContains(t, err, c.msg)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("reads the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prog.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
		p, err := Load(path)
		require.NoError(t, err)
		require.NotNil(t, p.Script)
	})

	t.Run("errors name the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scopes: {}\n"), 0o644))
		_, err := Load(path)
		require.ErrorIs(t, err, ErrInvalidDocument)
		require.ErrorContains(t, err, "bad.yaml")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
