package generator

import "log/slog"

// Config holds generation settings.
type Config struct {
	Debug   bool         // when true, prefix each node's code with a comment naming the node
	Version string       // nimarm build version; stamped in the output header when set
	Logger  *slog.Logger // nil discards
}

// fragment template names
const (
	tmplProgram   = "program"
	tmplMain      = "main"
	tmplVarDecl   = "var_decl"
	tmplAssign    = "assign"
	tmplPrint     = "print"
	tmplPrintBool = "print_bool"
	tmplIf        = "if"
	tmplIfElse    = "if_else"
	tmplWhile     = "while"
	tmplBinary    = "binary"
	tmplConcat    = "concat"
	tmplCompare   = "compare"
	tmplNot       = "not"
	tmplNeg       = "neg"
)

// runtime service codes, passed in r0 to the syscall macro
const (
	servicePrintString = 0
	servicePrintInt    = 1
	serviceAlloc       = 2
)

// programModel is the root template model.
type programModel struct {
	Version string
	Strings []pooledString
	Main    string
}

type mainModel struct {
	Body string
}

type varDeclModel struct {
	Init string // empty when the declaration has no initializer
}

type assignModel struct {
	Value  string
	Offset int
}

type printModel struct {
	Value       string
	ServiceCode int
}

// ifModel serves both the single and two-branch forms; TrueLabel,
// FalseLabel and Else are empty for the single-branch form.
type ifModel struct {
	Cond       string
	Then       string
	Else       string
	TrueLabel  string
	FalseLabel string
	EndLabel   string
}

type whileModel struct {
	Head string
	End  string
	Cond string
	Body string
}

// binaryModel renders integer arithmetic: Op is applied as "Op r0, r1, r0"
// with the left operand in r1.
type binaryModel struct {
	Op    string
	Left  string
	Right string
}

type concatModel struct {
	Left         string
	Right        string
	AllocService int
}

type compareModel struct {
	Left   string
	Right  string
	Branch string
	True   string
	False  string
	End    string
}

type unaryModel struct {
	Operand string
}
