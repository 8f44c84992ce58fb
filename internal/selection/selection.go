// Package selection builds immutable GraphQL field selections independently
// of any schema. A Selection is checked against a catalog by the query
// package before it can be rendered or used to decode a response.
package selection

import (
	"fmt"
	"slices"

	"github.com/hanpama/selgraph/internal/language"
)

// Argument is a named argument value.
type Argument struct {
	Name  string
	Value Value
}

// Field is one requested field. Field values are immutable; every builder
// method returns a modified copy.
type Field struct {
	name  string
	alias string
	args  []Argument
	sub   *Selection
}

// F starts a field request. It panics with a *ConstructionError if name is
// not a valid GraphQL name.
func F(name string) Field {
	f, err := newField(name)
	if err != nil {
		panic(err)
	}
	return f
}

func newField(name string) (Field, error) {
	if !language.IsName(name) {
		return Field{}, &ConstructionError{Kind: InvalidName, Message: fmt.Sprintf("invalid field name %q", name)}
	}
	return Field{name: name}, nil
}

// Name returns the schema field name.
func (f Field) Name() string { return f.name }

// Alias returns the alias, or "" when none was set.
func (f Field) Alias() string { return f.alias }

// ResponseKey is the key the field's value appears under in a response.
func (f Field) ResponseKey() string {
	if f.alias != "" {
		return f.alias
	}
	return f.name
}

// Arguments returns the arguments in the order they were added. The
// returned slice must not be modified.
func (f Field) Arguments() []Argument { return slices.Clip(f.args) }

// Argument returns the named argument value.
func (f Field) Argument(name string) (Value, bool) {
	for _, a := range f.args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Selection returns the nested selection. The second result is false for a
// leaf request.
func (f Field) Selection() (Selection, bool) {
	if f.sub == nil {
		return Selection{}, false
	}
	return *f.sub, true
}

// As sets the alias.
func (f Field) As(alias string) Field {
	out, err := f.withAlias(alias)
	if err != nil {
		panic(err)
	}
	return out
}

func (f Field) withAlias(alias string) (Field, error) {
	if !language.IsName(alias) {
		return f, &ConstructionError{Kind: InvalidName, Field: f.name, Message: fmt.Sprintf("invalid alias %q", alias)}
	}
	f.alias = alias
	return f, nil
}

// Arg adds an argument. v is converted with ValueOf.
func (f Field) Arg(name string, v any) Field {
	out, err := f.withArg(name, v)
	if err != nil {
		panic(err)
	}
	return out
}

func (f Field) withArg(name string, v any) (Field, error) {
	if !language.IsName(name) {
		return f, &ConstructionError{Kind: InvalidName, Field: f.ResponseKey(), Message: fmt.Sprintf("invalid argument name %q", name)}
	}
	if _, dup := f.Argument(name); dup {
		return f, &ConstructionError{Kind: DuplicateArgument, Field: f.ResponseKey(), Argument: name, Message: "argument given more than once"}
	}
	val, err := ValueOf(v)
	if err != nil {
		if ce, ok := err.(*ConstructionError); ok {
			ce.Field, ce.Argument = f.ResponseKey(), name
		}
		return f, err
	}
	f.args = append(slices.Clip(f.args), Argument{Name: name, Value: val})
	return f, nil
}

// Select sets the nested selection to the given fields.
func (f Field) Select(fields ...Field) Field {
	return f.SelectSet(New(fields...))
}

// SelectSet sets the nested selection.
func (f Field) SelectSet(sel Selection) Field {
	f.sub = &sel
	return f
}

// Selection is an ordered list of field requests. The zero value is an empty
// selection. Selections are immutable and safe for concurrent use.
type Selection struct {
	fields []Field
}

// New returns a selection of the given fields. It panics with a
// *ConstructionError if two fields share a response key.
func New(fields ...Field) Selection {
	return Selection{}.Append(fields...)
}

// Fields returns the requested fields in insertion order. The returned slice
// must not be modified.
func (s Selection) Fields() []Field { return slices.Clip(s.fields) }

func (s Selection) Len() int { return len(s.fields) }

func (s Selection) IsEmpty() bool { return len(s.fields) == 0 }

// Get returns the field with the given response key.
func (s Selection) Get(key string) (Field, bool) {
	for _, f := range s.fields {
		if f.ResponseKey() == key {
			return f, true
		}
	}
	return Field{}, false
}

// Append returns s with fields added at the end. It panics with a
// *ConstructionError if a response key would repeat.
func (s Selection) Append(fields ...Field) Selection {
	out, err := s.TryAppend(fields...)
	if err != nil {
		panic(err)
	}
	return out
}

// TryAppend is Append reporting the duplicate key as an error.
func (s Selection) TryAppend(fields ...Field) (Selection, error) {
	out := slices.Clip(s.fields)
	for _, f := range fields {
		if f.name == "" {
			return s, &ConstructionError{Kind: InvalidName, Message: "field without a name (use F)"}
		}
		key := f.ResponseKey()
		for _, existing := range out {
			if existing.ResponseKey() == key {
				return s, &ConstructionError{Kind: DuplicateField, Field: key, Message: "response key selected more than once"}
			}
		}
		out = append(out, f)
	}
	return Selection{fields: out}, nil
}

// Option modifies a field added through Selection.Field or Selection.Select.
type Option func(Field) Field

// Alias sets the field's alias.
func Alias(alias string) Option {
	return func(f Field) Field { return f.As(alias) }
}

// WithArg adds an argument.
func WithArg(name string, v any) Option {
	return func(f Field) Field { return f.Arg(name, v) }
}

// Field appends a leaf field request.
func (s Selection) Field(name string, opts ...Option) Selection {
	f := F(name)
	for _, opt := range opts {
		f = opt(f)
	}
	return s.Append(f)
}

// Select appends a field request with a nested selection.
func (s Selection) Select(name string, body Selection, opts ...Option) Selection {
	f := F(name)
	for _, opt := range opts {
		f = opt(f)
	}
	return s.Append(f.SelectSet(body))
}

// Equal reports whether a and b request the same fields, with the same
// aliases, arguments and nested selections, in the same order.
func Equal(a, b Selection) bool {
	if len(a.fields) != len(b.fields) {
		return false
	}
	for i := range a.fields {
		if !equalField(a.fields[i], b.fields[i]) {
			return false
		}
	}
	return true
}

func equalField(a, b Field) bool {
	if a.name != b.name || a.alias != b.alias || len(a.args) != len(b.args) {
		return false
	}
	for i := range a.args {
		if a.args[i].Name != b.args[i].Name || !EqualValues(a.args[i].Value, b.args[i].Value) {
			return false
		}
	}
	if (a.sub == nil) != (b.sub == nil) {
		return false
	}
	return a.sub == nil || Equal(*a.sub, *b.sub)
}
