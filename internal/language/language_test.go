package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuoteString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", `""`},
		{"Hello-World", `"Hello-World"`},
		{`say "hi"`, `"say \"hi\""`},
		{"a\\b", `"a\\b"`},
		{"line\nbreak\ttab", `"line\nbreak\ttab"`},
		{"\x01", `"\u0001"`},
		{"héllo", `"héllo"`},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, QuoteString(tt.in), tt.in)
	}
}

func TestIsName(t *testing.T) {
	for _, s := range []string{"a", "_", "__typename", "repo2", "Hello_World"} {
		require.True(t, IsName(s), s)
	}
	for _, s := range []string{"", "2repo", "hello-world", "a b", "é"} {
		require.False(t, IsName(s), s)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(`{states: [OPEN], first: 10}`)
	require.NoError(t, err)
	require.Equal(t, ObjectValue, v.Kind)
	require.Len(t, v.Children, 2)
	require.Equal(t, "states", v.Children[0].Name)
	require.Equal(t, ListValue, v.Children[0].Value.Kind)
	require.Equal(t, IntValue, v.Children[1].Value.Kind)
	require.Equal(t, "10", v.Children[1].Value.Raw)

	_, err = ParseValue(`[1, `)
	require.Error(t, err)
}

func TestLoadQuery(t *testing.T) {
	s, err := LoadSchema("schema.graphql", `type Query { hello(name: String!): String }`)
	require.NoError(t, err)

	doc, err := LoadQuery(s, `{ hello(name: "x") }`)
	require.NoError(t, err)
	require.Len(t, doc.Operations, 1)
	require.Equal(t, Query, doc.Operations[0].Operation)

	_, err = LoadQuery(s, `{ goodbye }`)
	require.ErrorContains(t, err, "goodbye")
}
