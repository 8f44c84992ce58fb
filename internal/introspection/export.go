package introspection

import (
	"sort"

	"github.com/hanpama/selgraph/internal/schema"
)

// FromSchema produces the introspection result a server would return for s.
// Types and directives are sorted by name; fields, arguments and enum values
// keep their declaration order. Load(FromSchema(s)) yields an equivalent
// catalog.
func FromSchema(s *schema.Schema) *Response {
	out := &Schema{
		Types:      []FullType{},
		Directives: []Directive{},
	}
	if s.Description != "" {
		out.Description = ptr(s.Description)
	}
	out.QueryType = typeName(s.GetQueryType())
	out.MutationType = typeName(s.GetMutationType())
	out.SubscriptionType = typeName(s.GetSubscriptionType())

	for _, t := range sortedTypes(s) {
		out.Types = append(out.Types, exportType(s, t))
	}
	for _, d := range sortedDirectives(s) {
		out.Directives = append(out.Directives, Directive{
			Name:         d.Name,
			Description:  optional(d.Description),
			Locations:    append([]string{}, d.Locations...),
			Args:         exportInputValues(s, d.Arguments),
			IsRepeatable: d.IsRepeatable,
		})
	}
	return &Response{Schema: out}
}

func typeName(t *schema.Type) *TypeName {
	if t == nil {
		return nil
	}
	return &TypeName{Name: t.Name}
}

func sortedTypes(sch *schema.Schema) []*schema.Type {
	out := make([]*schema.Type, 0, len(sch.Types))
	for _, t := range sch.Types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedDirectives(sch *schema.Schema) []*schema.Directive {
	dirs := make([]*schema.Directive, 0, len(sch.Directives))
	for _, d := range sch.Directives {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	return dirs
}

func exportType(s *schema.Schema, t *schema.Type) FullType {
	ft := FullType{
		Kind:        string(t.Kind),
		Name:        ptr(t.Name),
		Description: optional(t.Description),
	}
	switch t.Kind {
	case schema.TypeKindScalar:
		ft.SpecifiedByURL = t.SpecifiedByURL
	case schema.TypeKindObject, schema.TypeKindInterface:
		ft.Fields = []Field{}
		for _, f := range t.Fields.All() {
			ft.Fields = append(ft.Fields, Field{
				Name:              f.Name,
				Description:       optional(f.Description),
				Args:              exportInputValues(s, f.Arguments),
				Type:              exportTypeRef(s, f.Type),
				IsDeprecated:      f.IsDeprecated,
				DeprecationReason: deprecationReason(f.IsDeprecated, f.DeprecationReason),
			})
		}
		ft.Interfaces = namedRefs(t.Interfaces, schema.TypeKindInterface)
		if t.Kind == schema.TypeKindInterface {
			ft.PossibleTypes = namedRefs(t.PossibleTypes, schema.TypeKindObject)
		}
	case schema.TypeKindUnion:
		ft.PossibleTypes = namedRefs(t.PossibleTypes, schema.TypeKindObject)
	case schema.TypeKindEnum:
		ft.EnumValues = []EnumValue{}
		for _, ev := range t.EnumValues {
			ft.EnumValues = append(ft.EnumValues, EnumValue{
				Name:              ev.Name,
				Description:       optional(ev.Description),
				IsDeprecated:      ev.IsDeprecated,
				DeprecationReason: deprecationReason(ev.IsDeprecated, ev.DeprecationReason),
			})
		}
	case schema.TypeKindInputObject:
		ft.InputFields = exportInputValues(s, t.InputFields)
		if t.OneOf {
			ft.IsOneOf = ptr(true)
		}
	}
	return ft
}

// namedRefs exports interface and member names in declaration order. The
// kind is implied by the position.
func namedRefs(names []string, kind schema.TypeKind) []TypeRef {
	refs := make([]TypeRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, TypeRef{Kind: string(kind), Name: ptr(name)})
	}
	return refs
}

func exportInputValues(s *schema.Schema, values []*schema.InputValue) []InputValue {
	out := make([]InputValue, 0, len(values))
	for _, a := range values {
		iv := InputValue{
			Name:              a.Name,
			Description:       optional(a.Description),
			Type:              exportTypeRef(s, a.Type),
			IsDeprecated:      a.IsDeprecated,
			DeprecationReason: deprecationReason(a.IsDeprecated, a.DeprecationReason),
		}
		if a.HasDefault {
			iv.DefaultValue = ptr(schema.FormatValue(a.DefaultValue))
		}
		out = append(out, iv)
	}
	return out
}

func exportTypeRef(s *schema.Schema, tr *schema.TypeRef) *TypeRef {
	switch tr.Kind {
	case schema.TypeRefKindNonNull:
		return &TypeRef{Kind: "NON_NULL", OfType: exportTypeRef(s, tr.OfType)}
	case schema.TypeRefKindList:
		return &TypeRef{Kind: "LIST", OfType: exportTypeRef(s, tr.OfType)}
	}
	kind := schema.TypeKindScalar
	if t := s.Types[tr.Named]; t != nil {
		kind = t.Kind
	}
	return &TypeRef{Kind: string(kind), Name: ptr(tr.Named)}
}

func deprecationReason(deprecated bool, reason string) *string {
	if deprecated {
		return ptr(reason)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ptr[T any](v T) *T { return &v }
