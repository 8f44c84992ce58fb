package query

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/selgraph/internal/language"
	"github.com/hanpama/selgraph/internal/schema"
	"github.com/hanpama/selgraph/internal/selection"
)

// Catalog used by the repository walkthrough.
const repositorySDL = `
type Query {
  repository(owner: String!, name: String!): Repository
}

type Repository {
  name: String!
  stars: Int
}
`

// Catalog exercising input coercion and custom scalars.
const inputsSDL = `
scalar Date
scalar JSON

input Range {
  from: Date!
  to: Date
  step: Float = 1.0
}

input Pick {
  id: ID
  name: String
}

type Query {
  points(range: Range!, scale: Float, tags: [[String]]): [Float!]
  pick(by: Pick!): String
  today: Date
  echo(value: JSON): JSON
  ids: [ID!]
}
`

func githubSource(t *testing.T) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "..", "tests", "github", "schema.graphql"))
	require.NoError(t, err)
	return string(src)
}

func mustGithub(t *testing.T) *schema.Schema {
	t.Helper()
	return mustSDL(t, githubSource(t))
}

func mustSDL(t *testing.T, src string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL("schema.graphql", src)
	require.NoError(t, err)
	return s
}

// mustInputs returns the inputs catalog with a Date codec and Pick marked
// as a oneOf input.
func mustInputs(t *testing.T) *schema.Schema {
	t.Helper()
	s := mustSDL(t, inputsSDL)
	s, err := s.WithCodecs(map[string]schema.ScalarCodec{"Date": dateCodec})
	require.NoError(t, err)
	s.Types["Pick"].OneOf = true
	return s
}

var errNotDate = errors.New("not a date")

// dateCodec accepts RFC 3339 timestamps and sends calendar dates.
var dateCodec = schema.ScalarFuncs{
	EncodeFunc: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T", errNotDate, v)
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errNotDate, err)
		}
		return ts.Format(time.DateOnly), nil
	},
	DecodeFunc: func(raw any) (any, error) {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T", errNotDate, raw)
		}
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errNotDate, err)
		}
		return d, nil
	},
}

func mustValidate(t *testing.T, s *schema.Schema, op Operation, sel selection.Selection) *Validated {
	t.Helper()
	v, err := Validate(s, op, sel)
	require.NoError(t, err)
	return v
}

func validationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr
}

// selectionPaths lists every response-key path of sel.
func selectionPaths(sel selection.Selection, prefix string) map[string]bool {
	out := map[string]bool{}
	for _, f := range sel.Fields() {
		p := joinPath(prefix, f.ResponseKey())
		out[p] = true
		if sub, ok := f.Selection(); ok {
			for k := range selectionPaths(sub, p) {
				out[k] = true
			}
		}
	}
	return out
}

// requireAcceptedByGraphQL checks rendered text against the SDL with an
// independent validator.
func requireAcceptedByGraphQL(t *testing.T, sdl, text string) {
	t.Helper()
	s, err := language.LoadSchema("schema.graphql", sdl)
	require.NoError(t, err)
	_, err = language.LoadQuery(s, text)
	require.NoError(t, err, "rendered text: %s", text)
}
