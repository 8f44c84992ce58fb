package selection

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// EnumTag marks a YAML scalar as an enum symbol rather than a string.
const EnumTag = "!enum"

// ParseDocument reads a selection from YAML. The document is a sequence
// whose items are either a field name or a mapping:
//
//	- viewer
//	- field: repository
//	  alias: repo
//	  args:
//	    owner: octocat
//	    name: Hello-World
//	  select:
//	    - name
//	    - field: issues
//	      args: {first: 5, filter: {states: [!enum OPEN]}}
//	      select: [title]
//
// Argument mappings keep document order.
func ParseDocument(data []byte) (Selection, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Selection{}, fmt.Errorf("selection document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Selection{}, fmt.Errorf("selection document: empty")
	}
	return parseSelection(doc.Content[0])
}

type documentError struct {
	line int
	err  error
}

func (e *documentError) Error() string {
	return fmt.Sprintf("selection document: line %d: %v", e.line, e.err)
}

func (e *documentError) Unwrap() error { return e.err }

func nodeErr(n *yaml.Node, format string, args ...any) error {
	return &documentError{line: n.Line, err: fmt.Errorf(format, args...)}
}

func wrapNode(n *yaml.Node, err error) error {
	if _, ok := err.(*documentError); ok {
		return err
	}
	return &documentError{line: n.Line, err: err}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func parseSelection(n *yaml.Node) (Selection, error) {
	n = resolveAlias(n)
	if n.Kind != yaml.SequenceNode {
		return Selection{}, nodeErr(n, "expected a sequence of fields")
	}
	var sel Selection
	for _, item := range n.Content {
		f, err := parseField(resolveAlias(item))
		if err != nil {
			return Selection{}, err
		}
		if sel, err = sel.TryAppend(f); err != nil {
			return Selection{}, wrapNode(item, err)
		}
	}
	return sel, nil
}

func parseField(n *yaml.Node) (Field, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		f, err := newField(n.Value)
		if err != nil {
			return Field{}, wrapNode(n, err)
		}
		return f, nil
	case yaml.MappingNode:
	default:
		return Field{}, nodeErr(n, "expected a field name or mapping")
	}

	var name, alias string
	var args, body *yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolveAlias(n.Content[i+1])
		switch key.Value {
		case "field":
			name = val.Value
		case "alias":
			alias = val.Value
		case "args":
			args = val
		case "select":
			body = val
		default:
			return Field{}, nodeErr(key, "unknown key %q", key.Value)
		}
	}
	if name == "" {
		return Field{}, nodeErr(n, "mapping without a field key")
	}
	f, err := newField(name)
	if err != nil {
		return Field{}, wrapNode(n, err)
	}
	if alias != "" {
		if f, err = f.withAlias(alias); err != nil {
			return Field{}, wrapNode(n, err)
		}
	}
	if args != nil {
		if args.Kind != yaml.MappingNode {
			return Field{}, nodeErr(args, "args must be a mapping")
		}
		for i := 0; i+1 < len(args.Content); i += 2 {
			key := args.Content[i]
			v, err := parseValue(args.Content[i+1])
			if err != nil {
				return Field{}, err
			}
			if f, err = f.withArg(key.Value, v); err != nil {
				return Field{}, wrapNode(key, err)
			}
		}
	}
	if body != nil {
		sub, err := parseSelection(body)
		if err != nil {
			return Field{}, err
		}
		f = f.SelectSet(sub)
	}
	return f, nil
}

func parseValue(n *yaml.Node) (Value, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.SequenceNode:
		out := make(List, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := parseValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(Object, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := parseValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out = append(out, ObjectField{Name: n.Content[i].Value, Value: v})
		}
		if err := checkValue(out); err != nil {
			return nil, wrapNode(n, err)
		}
		return out, nil
	case yaml.ScalarNode:
		return parseScalar(n)
	}
	return nil, nodeErr(n, "unsupported value")
}

func parseScalar(n *yaml.Node) (Value, error) {
	var (
		v   Value
		err error
	)
	switch tag := n.ShortTag(); tag {
	case EnumTag:
		v = Enum(n.Value)
		err = checkValue(v)
	case "!!null":
		v = Null
	case "!!str":
		v = String(n.Value)
	case "!!bool":
		var b bool
		err = n.Decode(&b)
		v = Boolean(b)
	case "!!int":
		var i int64
		err = n.Decode(&i)
		v = Int(i)
	case "!!float":
		var f float64
		if err = n.Decode(&f); err == nil {
			v, err = floatValue(f)
		}
	default:
		return nil, nodeErr(n, "unsupported tag %s", tag)
	}
	if err != nil {
		return nil, wrapNode(n, err)
	}
	return v, nil
}
