package armsim

import (
	"fmt"
	"strconv"
	"strings"
)

type operandKind int

const (
	opReg     operandKind = iota // r0
	opImm                        // #4 or a bare number
	opLabel                      // branch target
	opMem                        // [rn], [rn, #off], [rn, #off]!
	opLiteral                    // =label or =number
)

type operand struct {
	kind      operandKind
	reg       int
	imm       int32
	label     string
	offset    int32
	writeback bool
}

type instr struct {
	line int
	op   string
	args []operand
}

// mnemonics lists the accepted instructions.
var mnemonics = map[string]bool{
	"mov": true, "ldr": true, "ldrb": true, "str": true, "strb": true,
	"add": true, "sub": true, "mul": true, "sdiv": true, "eor": true,
	"cmp": true, "b": true, "bl": true, "beq": true, "bne": true,
	"blt": true, "ble": true, "bgt": true, "bge": true, "cbz": true,
	"cbnz": true, "bx": true, "syscall": true, "bkpt": true, "nop": true,
}

var registerNames = map[string]int{
	"fp": 11, "ip": 12, "sp": 13, "lr": 14, "pc": 15,
}

// Program is parsed assembly ready to run.
type Program struct {
	instrs     []instr
	codeLabels map[string]int
	labelsAt   map[int][]string
	data       []byte
	dataLabels map[string]uint32
}

// Parse reads assembly text. Directives other than .asciz/.string/.word are
// ignored; labels followed by data name data addresses, all others name
// instructions.
func Parse(source string) (*Program, error) {
	p := &Program{
		codeLabels: make(map[string]int),
		labelsAt:   make(map[int][]string),
		dataLabels: make(map[string]uint32),
	}
	seen := make(map[string]bool)
	var pending []string
	inComment := false

	for i, raw := range strings.Split(source, "\n") {
		lineNo := i + 1
		var line string
		line, inComment = stripComments(raw, inComment)
		line = strings.TrimSpace(line)

		for {
			name, rest, ok := cutLabel(line)
			if !ok {
				break
			}
			if seen[name] {
				return nil, fmt.Errorf("duplicate label %q on line %d", name, lineNo)
			}
			seen[name] = true
			pending = append(pending, name)
			line = strings.TrimSpace(rest)
		}
		if line == "" {
			continue
		}

		head, rest := splitFirst(line)
		if strings.HasPrefix(head, ".") {
			bytes, isData, err := parseDirective(strings.ToLower(head), rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if !isData {
				continue
			}
			addr := dataBase + uint32(len(p.data))
			for _, l := range pending {
				p.dataLabels[l] = addr
			}
			pending = nil
			p.data = append(p.data, bytes...)
			continue
		}

		mnemonic := strings.ToLower(head)
		if !mnemonics[mnemonic] {
			return nil, fmt.Errorf("%w %q on line %d", ErrUnknownInstruction, head, lineNo)
		}
		args, err := parseOperands(rest)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		p.bindCode(pending, len(p.instrs))
		pending = nil
		p.instrs = append(p.instrs, instr{line: lineNo, op: mnemonic, args: args})
	}
	p.bindCode(pending, len(p.instrs))

	for _, in := range p.instrs {
		for _, a := range in.args {
			switch a.kind {
			case opLabel:
				if _, ok := p.codeLabels[a.label]; !ok {
					return nil, fmt.Errorf("%w %q on line %d", ErrUndefinedLabel, a.label, in.line)
				}
			case opLiteral:
				if a.label == "" {
					continue
				}
				if _, ok := p.dataLabels[a.label]; !ok {
					return nil, fmt.Errorf("%w %q on line %d", ErrUndefinedLabel, a.label, in.line)
				}
			}
		}
	}
	if _, ok := p.codeLabels[entryLabel]; !ok {
		return nil, fmt.Errorf("%w %q: no entry point", ErrUndefinedLabel, entryLabel)
	}
	return p, nil
}

func (p *Program) bindCode(labels []string, idx int) {
	for _, l := range labels {
		p.codeLabels[l] = idx
		p.labelsAt[idx] = append(p.labelsAt[idx], l)
	}
}

// stripComments removes // and @ line comments and /* */ block comments
// outside string literals. inBlock carries an open block comment across lines.
func stripComments(line string, inBlock bool) (string, bool) {
	var sb strings.Builder
	inQuote := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inBlock {
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				inBlock = false
				i++
			}
			continue
		}
		if inQuote {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(line) {
				i++
				sb.WriteByte(line[i])
			} else if c == '"' {
				inQuote = false
			}
			continue
		}
		switch {
		case c == '"':
			inQuote = true
			sb.WriteByte(c)
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			inBlock = true
			i++
		case c == '/' && i+1 < len(line) && line[i+1] == '/', c == '@':
			return sb.String(), false
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), inBlock
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '.', c == '$':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// cutLabel splits a leading "name:" off line.
func cutLabel(line string) (name, rest string, ok bool) {
	i := 0
	for i < len(line) && isIdentByte(line[i], i == 0) {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != ':' {
		return "", line, false
	}
	return line[:i], line[i+1:], true
}

func splitFirst(line string) (head, rest string) {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], strings.TrimSpace(line[i+1:])
	}
	return line, ""
}

func parseDirective(name, arg string) ([]byte, bool, error) {
	switch name {
	case ".asciz", ".string":
		s, err := unquote(arg)
		if err != nil {
			return nil, false, err
		}
		return append(s, 0), true, nil
	case ".word":
		var out []byte
		for _, f := range splitOperands(arg) {
			v, err := parseInt(f)
			if err != nil {
				return nil, false, err
			}
			u := uint32(v)
			out = append(out, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
		}
		return out, true, nil
	}
	return nil, false, nil
}

// unquote decodes a double-quoted assembler string.
func unquote(s string) ([]byte, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return nil, fmt.Errorf("malformed string %s", s)
	}
	s = s[1 : len(s)-1]
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return nil, fmt.Errorf("dangling escape in %q", s)
		}
		switch e := s[i]; {
		case e == 'n':
			out = append(out, '\n')
		case e == 't':
			out = append(out, '\t')
		case e == 'r':
			out = append(out, '\r')
		case e == '\\', e == '"':
			out = append(out, e)
		case e >= '0' && e <= '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 8)
			out = append(out, byte(v))
			i = j - 1
		case e == 'x' && i+2 < len(s):
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("bad hex escape in %q", s)
			}
			out = append(out, byte(v))
			i += 2
		default:
			return nil, fmt.Errorf("unknown escape \\%c", e)
		}
	}
	return out, nil
}

// splitOperands splits on commas outside brackets and braces.
func splitOperands(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func parseOperands(s string) ([]operand, error) {
	var out []operand
	for _, f := range splitOperands(s) {
		a, err := parseOperand(f)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func parseOperand(f string) (operand, error) {
	switch {
	case f == "":
		return operand{}, fmt.Errorf("empty operand")
	case f[0] == '[':
		return parseMem(f)
	case f[0] == '=':
		target := strings.TrimSpace(f[1:])
		if v, err := parseInt(target); err == nil {
			return operand{kind: opLiteral, imm: v}, nil
		}
		return operand{kind: opLiteral, label: target}, nil
	case f[0] == '#':
		v, err := parseInt(f[1:])
		if err != nil {
			return operand{}, err
		}
		return operand{kind: opImm, imm: v}, nil
	}
	if r, ok := parseRegister(f); ok {
		return operand{kind: opReg, reg: r}, nil
	}
	if v, err := parseInt(f); err == nil {
		return operand{kind: opImm, imm: v}, nil
	}
	if name, _, ok := cutLabel(f + ":"); ok && name == f {
		return operand{kind: opLabel, label: f}, nil
	}
	return operand{}, fmt.Errorf("bad operand %q", f)
}

func parseMem(f string) (operand, error) {
	end := strings.IndexByte(f, ']')
	if end < 0 {
		return operand{}, fmt.Errorf("unterminated memory operand %q", f)
	}
	a := operand{kind: opMem}
	switch tail := strings.TrimSpace(f[end+1:]); tail {
	case "":
	case "!":
		a.writeback = true
	default:
		return operand{}, fmt.Errorf("unexpected %q after memory operand", tail)
	}
	parts := splitOperands(f[1:end])
	if len(parts) == 0 || len(parts) > 2 {
		return operand{}, fmt.Errorf("bad memory operand %q", f)
	}
	r, ok := parseRegister(parts[0])
	if !ok {
		return operand{}, fmt.Errorf("bad base register %q", parts[0])
	}
	a.reg = r
	if len(parts) == 2 {
		v, err := parseInt(strings.TrimPrefix(parts[1], "#"))
		if err != nil {
			return operand{}, err
		}
		a.offset = v
	}
	return a, nil
}

func parseRegister(s string) (int, bool) {
	s = strings.ToLower(s)
	if r, ok := registerNames[s]; ok {
		return r, true
	}
	if len(s) < 2 || s[0] != 'r' {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 || n > 15 {
		return 0, false
	}
	return n, true
}

// parseInt accepts decimal, 0x, 0o and 0b forms with an optional sign.
func parseInt(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	if v < -1<<31 || v > 1<<32-1 {
		return 0, fmt.Errorf("number %q out of range", s)
	}
	return int32(v), nil
}
