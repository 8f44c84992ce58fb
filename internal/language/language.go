// Package language wraps the gqlparser front end used for SDL input and for
// checking generated query text.
package language

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses an executable document without validating it against a
// schema.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates SDL, merging type extensions. The result
// includes the built-in prelude definitions, flagged with BuiltIn.
func LoadSchema(name, source string) (*Schema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ParseValue parses a single GraphQL literal, such as an introspection
// defaultValue string.
func ParseValue(source string) (*Value, error) {
	// Wrapping the literal in a field argument lets the query parser handle it.
	doc, err := parser.ParseQuery(&ast.Source{Input: "{ f(v: " + source + ") }"})
	if err != nil {
		return nil, err
	}
	field := doc.Operations[0].SelectionSet[0].(*ast.Field)
	return field.Arguments[0].Value, nil
}

// LoadQuery parses an executable document and validates it against s.
func LoadQuery(s *Schema, source string) (*QueryDocument, error) {
	doc, errs := gqlparser.LoadQuery(s, source)
	if len(errs) > 0 {
		return nil, errs
	}
	return doc, nil
}
