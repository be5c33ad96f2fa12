package generator

import (
	"errors"

	"github.com/calumari/nimarm/internal/ast"
)

// genScript assembles the final program: directives, the data section with
// the pooled literals, the runtime routines and the entry block under main.
func (g *Generator) genScript(n *ast.Script) error {
	if n.Main == nil {
		return errors.New("script has no entry block")
	}
	if err := g.visit(n.Main); err != nil {
		return err
	}
	main, err := g.codeOf(n.Main)
	if err != nil {
		return err
	}
	text, err := render(tmplProgram, programModel{
		Version: g.cfg.Version,
		Strings: g.pool.entries,
		Main:    main,
	})
	if err != nil {
		return err
	}
	return g.emit(n, text)
}
