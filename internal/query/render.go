package query

import (
	"strconv"
	"strings"

	"github.com/hanpama/selgraph/internal/language"
	"github.com/hanpama/selgraph/internal/selection"
)

// Render returns the operation text in compact form:
//
//	{ repository(owner: "octocat", name: "Hello-World") { name stars } }
//
// Fields appear in selection order. Mutations are prefixed with "mutation ".
// Render panics with ErrNotValidated on a Validated not produced by Validate.
func (v *Validated) Render() string {
	if !v.valid() {
		panic(ErrNotValidated)
	}
	var b strings.Builder
	if v.op == Mutation {
		b.WriteString("mutation ")
	}
	writeCompact(&b, v.fields)
	return b.String()
}

func writeCompact(b *strings.Builder, fields []*ValidatedField) {
	b.WriteString("{")
	for _, f := range fields {
		b.WriteByte(' ')
		writeFieldHead(b, f)
		if len(f.Children) > 0 {
			b.WriteByte(' ')
			writeCompact(b, f.Children)
		}
	}
	b.WriteString(" }")
}

// RenderIndent returns the operation text with one field per line, nested
// blocks indented by indent ("  " if empty). The text ends with a newline.
func (v *Validated) RenderIndent(indent string) string {
	if !v.valid() {
		panic(ErrNotValidated)
	}
	if indent == "" {
		indent = "  "
	}
	var b strings.Builder
	if v.op == Mutation {
		b.WriteString("mutation ")
	}
	writeIndented(&b, v.fields, indent, 0)
	b.WriteByte('\n')
	return b.String()
}

func writeIndented(b *strings.Builder, fields []*ValidatedField, indent string, depth int) {
	b.WriteString("{\n")
	for _, f := range fields {
		b.WriteString(strings.Repeat(indent, depth+1))
		writeFieldHead(b, f)
		if len(f.Children) > 0 {
			b.WriteByte(' ')
			writeIndented(b, f.Children, indent, depth+1)
		}
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat(indent, depth))
	b.WriteByte('}')
}

func writeFieldHead(b *strings.Builder, f *ValidatedField) {
	if alias := f.Request.Alias(); alias != "" {
		b.WriteString(alias)
		b.WriteString(": ")
	}
	b.WriteString(f.Request.Name())
	if len(f.Args) == 0 {
		return
	}
	b.WriteByte('(')
	for i, a := range f.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Name)
		b.WriteString(": ")
		writeLiteral(b, a.Value)
	}
	b.WriteByte(')')
}

func literal(v selection.Value) string {
	var b strings.Builder
	writeLiteral(&b, v)
	return b.String()
}

func writeLiteral(b *strings.Builder, v selection.Value) {
	switch x := v.(type) {
	case selection.Boolean:
		b.WriteString(strconv.FormatBool(bool(x)))
	case selection.Int:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case selection.Float:
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 64))
	case selection.String:
		b.WriteString(language.QuoteString(string(x)))
	case selection.Enum:
		b.WriteString(string(x))
	case selection.List:
		b.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, item)
		}
		b.WriteByte(']')
	case selection.Object:
		b.WriteByte('{')
		for i, f := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			writeLiteral(b, f.Value)
		}
		b.WriteByte('}')
	default:
		b.WriteString("null")
	}
}
