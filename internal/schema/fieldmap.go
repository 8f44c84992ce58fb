package schema

// FieldMap is an insertion-ordered set of field definitions keyed by name.
type FieldMap struct {
	order  []*Field
	byName map[string]*Field
}

// NewFieldMap returns a FieldMap holding fields in the given order. A later
// field replaces an earlier one of the same name in place.
func NewFieldMap(fields ...*Field) *FieldMap {
	m := &FieldMap{byName: make(map[string]*Field, len(fields))}
	for _, f := range fields {
		m.Set(f)
	}
	return m
}

// Set adds f, or replaces the field with the same name keeping its position.
func (m *FieldMap) Set(f *Field) {
	if m.byName == nil {
		m.byName = make(map[string]*Field)
	}
	if _, ok := m.byName[f.Name]; ok {
		for i, existing := range m.order {
			if existing.Name == f.Name {
				m.order[i] = f
				break
			}
		}
	} else {
		m.order = append(m.order, f)
	}
	m.byName[f.Name] = f
}

// Get returns the field named name, or nil.
func (m *FieldMap) Get(name string) *Field {
	if m == nil {
		return nil
	}
	return m.byName[name]
}

// Len returns the number of fields.
func (m *FieldMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// All returns the fields in insertion order. The slice must not be modified.
func (m *FieldMap) All() []*Field {
	if m == nil {
		return nil
	}
	return m.order
}

// Names returns the field names in insertion order.
func (m *FieldMap) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, len(m.order))
	for i, f := range m.order {
		names[i] = f.Name
	}
	return names
}
