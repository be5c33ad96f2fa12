package generator

import (
	"fmt"
	"strings"
)

// labelAllocator hands out "base_n" labels. The counter is shared by all
// bases so two calls never collide.
type labelAllocator struct {
	next int
}

func (a *labelAllocator) unique(base string) string {
	l := fmt.Sprintf("%s_%d", base, a.next)
	a.next++
	return l
}

// pooledString is a string literal placed in the data section.
type pooledString struct {
	Label string
	Text  string
}

// Quoted renders Text as an .asciz operand.
func (p pooledString) Quoted() string { return quoteAsciz(p.Text) }

// stringPool keeps literals in insertion order, which is the order they are
// emitted.
type stringPool struct {
	entries []pooledString
}

func (p *stringPool) add(label, text string) {
	p.entries = append(p.entries, pooledString{Label: label, Text: text})
}

// recordString pools a literal under a fresh label and returns the label.
func (g *Generator) recordString(text string) string {
	label := g.labels.unique("string")
	g.pool.add(label, text)
	return label
}

// quoteAsciz quotes s using the escapes GNU as understands; bytes outside
// printable ASCII become octal escapes.
func quoteAsciz(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, `\%03o`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
