package schema

import (
	"fmt"
	"sort"
)

// Check verifies that the catalog is internally consistent: root types exist
// and are objects, every type reference resolves, and kinds line up (field
// types are output types, argument types are input types, union members are
// objects, implemented interfaces are interfaces). The first problem found,
// in type name order, is returned.
func (s *Schema) Check() error {
	if s.QueryType == "" {
		return fmt.Errorf("schema: no query type")
	}
	for _, root := range []string{s.QueryType, s.MutationType, s.SubscriptionType} {
		if root == "" {
			continue
		}
		t, err := s.Lookup(root)
		if err != nil {
			return fmt.Errorf("root type: %w", err)
		}
		if t.Kind != TypeKindObject {
			return fmt.Errorf("schema: root type %s is %s, not OBJECT", root, t.Kind)
		}
	}

	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := s.Types[name]
		if t.Name != name {
			return fmt.Errorf("schema: type registered as %q is named %q", name, t.Name)
		}
		if err := s.checkType(t); err != nil {
			return fmt.Errorf("type %s: %w", name, err)
		}
	}
	return nil
}

func (s *Schema) checkType(t *Type) error {
	switch t.Kind {
	case TypeKindScalar:
	case TypeKindEnum:
		if len(t.EnumValues) == 0 {
			return fmt.Errorf("enum has no values")
		}
	case TypeKindObject, TypeKindInterface:
		if t.Fields.Len() == 0 {
			return fmt.Errorf("%s has no fields", t.Kind)
		}
		for _, iface := range t.Interfaces {
			if err := s.expectKind(iface, TypeKindInterface); err != nil {
				return err
			}
		}
		for _, f := range t.Fields.All() {
			r, err := s.Resolve(f.Type)
			if err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			if r.Type.Kind == TypeKindInputObject {
				return fmt.Errorf("field %s: input type %s in output position", f.Name, r.Type.Name)
			}
			for _, arg := range f.Arguments {
				if err := s.checkInput(arg); err != nil {
					return fmt.Errorf("field %s: argument %s: %w", f.Name, arg.Name, err)
				}
			}
		}
		if t.Kind == TypeKindInterface {
			for _, p := range t.PossibleTypes {
				if err := s.expectKind(p, TypeKindObject); err != nil {
					return err
				}
			}
		}
	case TypeKindUnion:
		if len(t.PossibleTypes) == 0 {
			return fmt.Errorf("union has no members")
		}
		for _, p := range t.PossibleTypes {
			if err := s.expectKind(p, TypeKindObject); err != nil {
				return err
			}
		}
	case TypeKindInputObject:
		for _, f := range t.InputFields {
			if err := s.checkInput(f); err != nil {
				return fmt.Errorf("input field %s: %w", f.Name, err)
			}
		}
	default:
		return fmt.Errorf("unknown kind %q", t.Kind)
	}
	return nil
}

func (s *Schema) checkInput(v *InputValue) error {
	r, err := s.Resolve(v.Type)
	if err != nil {
		return err
	}
	if !r.Type.IsInput() {
		return fmt.Errorf("output type %s in input position", r.Type.Name)
	}
	return nil
}

func (s *Schema) expectKind(name string, kind TypeKind) error {
	t, err := s.Lookup(name)
	if err != nil {
		return err
	}
	if t.Kind != kind {
		return fmt.Errorf("%s is %s, expected %s", name, t.Kind, kind)
	}
	return nil
}
