// Package query binds selections to a schema and converts them to and from
// the wire: Validate checks a selection offline, Render prints the operation
// text and Decode maps a response onto the validated shape.
package query

import (
	"errors"
	"fmt"

	"github.com/hanpama/selgraph/internal/schema"
	"github.com/hanpama/selgraph/internal/selection"
)

var typenameResolved = schema.Resolved{
	Type:       &schema.Type{Name: "String", Kind: schema.TypeKindScalar},
	NullableAt: []bool{false},
}

// Validate checks sel against the root type of op in s. Fields are checked
// left to right and every failure is collected; a failed validation returns
// a *ValidationError whose tree mirrors sel. A type reference missing from
// the catalog is returned as-is.
func Validate(s *schema.Schema, op Operation, sel selection.Selection) (*Validated, error) {
	var root *schema.Type
	switch op {
	case Mutation:
		if root = s.GetMutationType(); root == nil {
			return nil, ErrNoMutationType
		}
	default:
		if root = s.GetQueryType(); root == nil {
			return nil, errors.New("query: schema has no query type")
		}
	}
	if sel.IsEmpty() {
		return nil, ErrEmptySelection
	}

	v := &validator{schema: s}
	fields, errs := v.selectionSet(root, sel, "")
	if v.fatal != nil {
		return nil, v.fatal
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return &Validated{schema: s, op: op, root: root, sel: sel, fields: fields}, nil
}

type validator struct {
	schema *schema.Schema
	fatal  error
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func (v *validator) selectionSet(parent *schema.Type, sel selection.Selection, prefix string) ([]*ValidatedField, []*FieldErrors) {
	var (
		fields      []*ValidatedField
		errs        []*FieldErrors
		hasTypename bool
	)
	for _, f := range sel.Fields() {
		key := f.ResponseKey()
		if key == schema.TypenameField && f.Name() == schema.TypenameField {
			hasTypename = true
		}
		vf, node := v.field(parent, f, joinPath(prefix, key))
		if !node.empty() {
			errs = append(errs, node)
			continue
		}
		fields = append(fields, vf)
	}
	if parent.IsAbstract() && !hasTypename {
		fields = append(fields, &ValidatedField{
			Request:  selection.F(schema.TypenameField),
			Parent:   parent,
			Resolved: v.typename(),
			Implicit: true,
		})
	}
	return fields, errs
}

func (v *validator) typename() schema.Resolved {
	if t := v.schema.Types["String"]; t != nil {
		return schema.Resolved{Type: t, NullableAt: []bool{false}}
	}
	return typenameResolved
}

func (v *validator) field(parent *schema.Type, f selection.Field, path string) (*ValidatedField, *FieldErrors) {
	node := &FieldErrors{Key: f.ResponseKey(), Path: path}
	report := func(kind ErrorKind, arg, format string, args ...any) {
		node.Errors = append(node.Errors, &FieldError{
			Kind:     kind,
			Path:     path,
			OnType:   parent.Name,
			Field:    f.Name(),
			Argument: arg,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if parent.IsAbstract() && f.ResponseKey() == schema.TypenameField && f.Name() != schema.TypenameField {
		// The decoder reads the concrete type from this key.
		report(ReservedResponseKey, "", "alias %s is reserved for the type name of %s", schema.TypenameField, parent.Name)
		return nil, node
	}

	vf := &ValidatedField{Request: f, Parent: parent}
	switch {
	case f.Name() == schema.TypenameField:
		vf.Resolved = v.typename()
	case parent.Kind == schema.TypeKindUnion:
		report(NoSuchField, "", "union %s has no field %q; only %s can be selected", parent.Name, f.Name(), schema.TypenameField)
		return nil, node
	default:
		vf.Def = parent.Field(f.Name())
		if vf.Def == nil {
			report(NoSuchField, "", "type %s has no field %q", parent.Name, f.Name())
			return nil, node
		}
		res, err := v.schema.Resolve(vf.Def.Type)
		if err != nil {
			v.fail(err)
			return nil, node
		}
		vf.Resolved = res
	}

	vf.Args = v.arguments(parent, vf.Def, f, report)

	sub, hasSub := f.Selection()
	if vf.Resolved.Type.IsComposite() {
		if !hasSub || sub.IsEmpty() {
			report(SelectionRequired, "", "field %q of type %s must have a selection of subfields", f.Name(), vf.Def.Type)
		} else {
			vf.Children, node.Fields = v.selectionSet(vf.Resolved.Type, sub, path)
		}
	} else if hasSub {
		report(UnexpectedSelection, "", "field %q of %s type %s must not have a selection", f.Name(), kindWord(vf.Resolved.Type), vf.Resolved.Type.Name)
	}
	return vf, node
}

func (v *validator) arguments(parent *schema.Type, def *schema.Field, f selection.Field, report func(ErrorKind, string, string, ...any)) []selection.Argument {
	var out []selection.Argument
	for _, a := range f.Arguments() {
		var argDef *schema.InputValue
		if def != nil {
			argDef = def.Argument(a.Name)
		}
		if argDef == nil {
			report(NoSuchArgument, a.Name, "field %s.%s has no argument %q", parent.Name, f.Name(), a.Name)
			continue
		}
		val, err := v.coerce(argDef.Type, a.Value)
		if err != nil {
			if v.fatal != nil {
				return nil
			}
			report(InvalidArgumentValue, a.Name, "argument %q: %v", a.Name, err)
			continue
		}
		out = append(out, selection.Argument{Name: a.Name, Value: val})
	}
	if def == nil {
		return out
	}
	for _, argDef := range def.Arguments {
		if _, given := f.Argument(argDef.Name); !given && argDef.IsRequired() {
			report(MissingRequiredArgument, argDef.Name, "argument %q of type %s is required", argDef.Name, argDef.Type)
		}
	}
	return out
}

func (v *validator) fail(err error) {
	if v.fatal == nil {
		v.fatal = err
	}
}

func kindWord(t *schema.Type) string {
	if t.Kind == schema.TypeKindEnum {
		return "enum"
	}
	return "scalar"
}
