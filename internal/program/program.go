// Package program decodes the document the parser and semantic analyzer hand
// to the code generator: the syntax tree with each expression's type
// annotation, and the symbols of every scope.
package program

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/calumari/nimarm/internal/ast"
	"github.com/calumari/nimarm/internal/semantics"
)

// GlobalScopeName names the root scope the "$main" scope hangs off.
const GlobalScopeName = "$global"

// ErrInvalidDocument reports a document that does not describe a program.
var ErrInvalidDocument = errors.New("invalid program document")

// Program is a decoded document, ready for generation.
type Program struct {
	Tree   *ast.Tree
	Script *ast.Script
	Types  *semantics.Types
	Global *semantics.Scope
}

// Load reads and decodes the document at path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode reads one document from r.
func Decode(r io.Reader) (*Program, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return newBuilder().build(&doc)
}

// document mirrors the YAML layout.
type document struct {
	Scopes map[string][]symbolDoc `yaml:"scopes"`
	Main   *mainDoc               `yaml:"main"`
}

type symbolDoc struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Param bool   `yaml:"param"`
}

type mainDoc struct {
	Vars []varDoc  `yaml:"vars"`
	Body []stmtDoc `yaml:"body"`
}

type varDoc struct {
	Var  string   `yaml:"var"`
	Init *exprDoc `yaml:"init"`
}

// stmtDoc is one of: assign+value, print, if+then[+else], while+do.
type stmtDoc struct {
	Assign *string    `yaml:"assign"`
	Value  *exprDoc   `yaml:"value"`
	Print  *exprDoc   `yaml:"print"`
	If     *exprDoc   `yaml:"if"`
	Then   []stmtDoc  `yaml:"then"`
	Else   *[]stmtDoc `yaml:"else"`
	While  *exprDoc   `yaml:"while"`
	Do     []stmtDoc  `yaml:"do"`
}

// exprDoc is one of: int, bool, string, ref, paren, op+operand, op+left+right.
// Type is the analyzer's annotation and may be omitted.
type exprDoc struct {
	Type    string   `yaml:"type"`
	Int     *int64   `yaml:"int"`
	Bool    *bool    `yaml:"bool"`
	String  *string  `yaml:"string"`
	Ref     *string  `yaml:"ref"`
	Paren   *exprDoc `yaml:"paren"`
	Op      string   `yaml:"op"`
	Operand *exprDoc `yaml:"operand"`
	Left    *exprDoc `yaml:"left"`
	Right   *exprDoc `yaml:"right"`
}
