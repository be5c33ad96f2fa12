package generator

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

const templatePattern = "templates/*.tmpl"

//go:embed templates/*.tmpl
var templatesFS embed.FS

var (
	fileTmpl     *template.Template
	tmplInitOnce sync.Once
	tmplInitErr  error
)

// validateTemplates ensures every fragment the synthesizers render is defined.
func validateTemplates() error {
	required := []string{
		tmplProgram,
		tmplMain,
		tmplVarDecl,
		tmplAssign,
		tmplPrint,
		tmplPrintBool,
		tmplIf,
		tmplIfElse,
		tmplWhile,
		tmplBinary,
		tmplConcat,
		tmplCompare,
		tmplNot,
		tmplNeg,
	}
	for _, name := range required {
		if fileTmpl.Lookup(name) == nil {
			return fmt.Errorf("required template %q not found", name)
		}
	}
	return nil
}

// ensureTemplates parses and validates templates exactly once.
func ensureTemplates() error {
	tmplInitOnce.Do(func() {
		var t *template.Template
		t, tmplInitErr = template.New(tmplProgram).Option("missingkey=error").ParseFS(templatesFS, templatePattern)
		if tmplInitErr != nil {
			return
		}
		fileTmpl = t
		tmplInitErr = validateTemplates()
	})
	return tmplInitErr
}

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := fileTmpl.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}
