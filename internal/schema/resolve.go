package schema

import "fmt"

// UnknownTypeError reports a type reference naming a type missing from the
// catalog. It means the schema is malformed or only partially loaded.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("schema: unknown type %q", e.Name)
}

// Resolved describes where a type reference lands in the catalog.
type Resolved struct {
	// Type is the innermost named type.
	Type *Type
	// Nullable reports whether the outermost position accepts null.
	Nullable bool
	// ListDepth is the number of list wrappers.
	ListDepth int
	// NullableAt holds the nullability of each list level, outermost first.
	// The last entry belongs to the named type itself, so
	// len(NullableAt) == ListDepth+1.
	NullableAt []bool
}

// Elem returns the resolution of a list element. It must only be called
// when ListDepth > 0.
func (r Resolved) Elem() Resolved {
	return Resolved{
		Type:       r.Type,
		Nullable:   r.NullableAt[1],
		ListDepth:  r.ListDepth - 1,
		NullableAt: r.NullableAt[1:],
	}
}

// Resolve strips List and NonNull wrappers from ref outer to inner and looks
// up the named type. Consecutive NonNull wrappers count as one.
func (s *Schema) Resolve(ref *TypeRef) (Resolved, error) {
	var r Resolved
	nullable := true
	for cur := ref; ; {
		if cur == nil {
			return Resolved{}, fmt.Errorf("schema: incomplete type reference %s", ref)
		}
		switch cur.Kind {
		case TypeRefKindNonNull:
			nullable = false
			cur = cur.OfType
			continue
		case TypeRefKindList:
			r.NullableAt = append(r.NullableAt, nullable)
			r.ListDepth++
			nullable = true
			cur = cur.OfType
			continue
		}
		r.NullableAt = append(r.NullableAt, nullable)
		t := s.Types[cur.Named]
		if t == nil {
			return Resolved{}, &UnknownTypeError{Name: cur.Named}
		}
		r.Type = t
		r.Nullable = r.NullableAt[0]
		return r, nil
	}
}

// Lookup returns the named type or an *UnknownTypeError.
func (s *Schema) Lookup(name string) (*Type, error) {
	if t := s.Types[name]; t != nil {
		return t, nil
	}
	return nil, &UnknownTypeError{Name: name}
}
