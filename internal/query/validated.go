package query

import (
	"slices"

	"github.com/hanpama/selgraph/internal/schema"
	"github.com/hanpama/selgraph/internal/selection"
)

// Operation is the root an operation starts from.
type Operation int

const (
	Query Operation = iota
	Mutation
)

func (o Operation) String() string {
	if o == Mutation {
		return "mutation"
	}
	return "query"
}

// Validated is a selection proven consistent with a schema. It is produced
// only by Validate and is the only input Render and Decode accept.
type Validated struct {
	schema *schema.Schema
	op     Operation
	root   *schema.Type
	sel    selection.Selection
	fields []*ValidatedField
}

func (v *Validated) Operation() Operation           { return v.op }
func (v *Validated) Root() *schema.Type             { return v.root }
func (v *Validated) Schema() *schema.Schema         { return v.schema }
func (v *Validated) Selection() selection.Selection { return v.sel }

// Fields returns the bound root fields. The slice must not be modified.
func (v *Validated) Fields() []*ValidatedField { return v.fields }

func (v *Validated) valid() bool { return v != nil && v.root != nil }

// ValidatedField is a requested field bound to its definition.
type ValidatedField struct {
	Request selection.Field
	// Def is nil for __typename.
	Def *schema.Field
	// Parent is the type the field was looked up on.
	Parent   *schema.Type
	Resolved schema.Resolved
	// Args holds the argument values to print, after enum binding, list
	// coercion and scalar encoding, in request order.
	Args []selection.Argument
	// Implicit marks a __typename request added for abstract types. It is
	// rendered but never exposed as a result key.
	Implicit bool
	Children []*ValidatedField
}

func (f *ValidatedField) ResponseKey() string { return f.Request.ResponseKey() }

// Equal reports whether a and b bind the same selection to the same schema
// definitions.
func Equal(a, b *Validated) bool {
	if !a.valid() || !b.valid() {
		return a.valid() == b.valid()
	}
	return a.op == b.op && a.root == b.root && selection.Equal(a.sel, b.sel) && equalFields(a.fields, b.fields)
}

func equalFields(a, b []*ValidatedField) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Request.Name() != y.Request.Name() || x.ResponseKey() != y.ResponseKey() ||
			x.Def != y.Def || x.Parent != y.Parent || x.Implicit != y.Implicit ||
			x.Resolved.Type != y.Resolved.Type || !slices.Equal(x.Resolved.NullableAt, y.Resolved.NullableAt) ||
			len(x.Args) != len(y.Args) {
			return false
		}
		for j := range x.Args {
			if x.Args[j].Name != y.Args[j].Name || !selection.EqualValues(x.Args[j].Value, y.Args[j].Value) {
				return false
			}
		}
		if !equalFields(x.Children, y.Children) {
			return false
		}
	}
	return true
}
