package query

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/selgraph/internal/schema"
	"github.com/hanpama/selgraph/internal/selection"
)

func helloWorld() selection.Selection {
	return selection.New(
		selection.F("repository").
			Arg("owner", "octocat").
			Arg("name", "Hello-World").
			Select(selection.F("name"), selection.F("stars")),
	)
}

func TestRepositoryWalkthrough(t *testing.T) {
	s := mustSDL(t, repositorySDL)

	v := mustValidate(t, s, Query, helloWorld())
	require.Equal(t, `{ repository(owner: "octocat", name: "Hello-World") { name stars } }`, v.Render())

	result, err := DecodeJSON(v, []byte(`{"repository": {"name": "Hello-World", "stars": 42}}`))
	require.NoError(t, err)

	raw, ok := result.Get("repository")
	require.True(t, ok)
	repo := raw.(*Object)
	require.Equal(t, "Repository", repo.Typename)
	require.Equal(t, []string{"name", "stars"}, repo.Keys())
	name, _ := repo.Get("name")
	stars, _ := repo.Get("stars")
	require.Equal(t, "Hello-World", name)
	require.Equal(t, 42, stars)
}

func TestValidationErrorKinds(t *testing.T) {
	repo := func(fields ...selection.Field) selection.Selection {
		return selection.New(selection.F("repository").Arg("owner", "octocat").Arg("name", "Hello-World").Select(fields...))
	}
	issues := func(args ...any) selection.Selection {
		f := selection.F("issues")
		for i := 0; i+1 < len(args); i += 2 {
			f = f.Arg(args[i].(string), args[i+1])
		}
		return repo(f.Select(selection.F("title")))
	}

	tests := []struct {
		name string
		sel  selection.Selection
		want FieldError
	}{
		{
			name: "unknown field",
			sel:  repo(selection.F("name"), selection.F("foo")),
			want: FieldError{Kind: NoSuchField, Path: "repository.foo", OnType: "Repository", Field: "foo",
				Message: `type Repository has no field "foo"`},
		},
		{
			name: "object without selection",
			sel:  selection.New(selection.F("repository").Arg("owner", "octocat").Arg("name", "Hello-World")),
			want: FieldError{Kind: SelectionRequired, Path: "repository", OnType: "Query", Field: "repository",
				Message: `field "repository" of type Repository must have a selection of subfields`},
		},
		{
			name: "empty selection on object",
			sel:  selection.New(selection.F("repository").Arg("owner", "octocat").Arg("name", "Hello-World").SelectSet(selection.Selection{})),
			want: FieldError{Kind: SelectionRequired, Path: "repository", OnType: "Query", Field: "repository",
				Message: `field "repository" of type Repository must have a selection of subfields`},
		},
		{
			name: "scalar with selection",
			sel:  repo(selection.F("stars").Select(selection.F("count"))),
			want: FieldError{Kind: UnexpectedSelection, Path: "repository.stars", OnType: "Repository", Field: "stars",
				Message: `field "stars" of scalar type Int must not have a selection`},
		},
		{
			name: "enum with selection",
			sel:  repo(selection.F("issues").Arg("first", 1).Select(selection.F("state").Select(selection.F("name")))),
			want: FieldError{Kind: UnexpectedSelection, Path: "repository.issues.state", OnType: "Issue", Field: "state",
				Message: `field "state" of enum type IssueState must not have a selection`},
		},
		{
			name: "unknown argument",
			sel:  selection.New(selection.F("repository").Arg("owner", "o").Arg("name", "n").Arg("private", true).Select(selection.F("name"))),
			want: FieldError{Kind: NoSuchArgument, Path: "repository", OnType: "Query", Field: "repository", Argument: "private",
				Message: `field Query.repository has no argument "private"`},
		},
		{
			name: "missing required argument",
			sel:  selection.New(selection.F("repository").Arg("owner", "o").Select(selection.F("name"))),
			want: FieldError{Kind: MissingRequiredArgument, Path: "repository", OnType: "Query", Field: "repository", Argument: "name",
				Message: `argument "name" of type String! is required`},
		},
		{
			name: "wrong scalar kind",
			sel:  selection.New(selection.F("repository").Arg("owner", 5).Arg("name", "n").Select(selection.F("name"))),
			want: FieldError{Kind: InvalidArgumentValue, Path: "repository", OnType: "Query", Field: "repository", Argument: "owner",
				Message: `argument "owner": expected String, got int 5`},
		},
		{
			name: "null for non-null",
			sel:  issues("first", nil),
			want: FieldError{Kind: InvalidArgumentValue, Path: "repository.issues", OnType: "Repository", Field: "issues", Argument: "first",
				Message: `argument "first": expected Int!, got null`},
		},
		{
			name: "int out of range",
			sel:  issues("first", int64(math.MaxInt32)+1),
			want: FieldError{Kind: InvalidArgumentValue, Path: "repository.issues", OnType: "Repository", Field: "issues", Argument: "first",
				Message: `argument "first": expected Int, got int 2147483648`},
		},
		{
			name: "unknown enum member",
			sel:  issues("first", 1, "filter", map[string]any{"states": []any{selection.Enum("BOGUS")}}),
			want: FieldError{Kind: InvalidArgumentValue, Path: "repository.issues", OnType: "Repository", Field: "issues", Argument: "filter",
				Message: `argument "filter": field states: [0]: "BOGUS" is not a value of enum IssueState`},
		},
		{
			name: "enum given a number",
			sel:  issues("first", 1, "filter", map[string]any{"states": 3}),
			want: FieldError{Kind: InvalidArgumentValue, Path: "repository.issues", OnType: "Repository", Field: "issues", Argument: "filter",
				Message: `argument "filter": field states: expected enum IssueState, got int 3`},
		},
		{
			name: "unknown input field",
			sel:  issues("first", 1, "filter", map[string]any{"assignee": "me"}),
			want: FieldError{Kind: InvalidArgumentValue, Path: "repository.issues", OnType: "Repository", Field: "issues", Argument: "filter",
				Message: `argument "filter": input object IssueFilter has no field "assignee"`},
		},
		{
			name: "scalar for input object",
			sel:  issues("first", 1, "filter", "OPEN"),
			want: FieldError{Kind: InvalidArgumentValue, Path: "repository.issues", OnType: "Repository", Field: "issues", Argument: "filter",
				Message: `argument "filter": expected input object IssueFilter, got string "OPEN"`},
		},
		{
			name: "union member field",
			sel:  selection.New(selection.F("search").Arg("query", "graphql").Select(selection.F("name"))),
			want: FieldError{Kind: NoSuchField, Path: "search.name", OnType: "SearchResult", Field: "name",
				Message: `union SearchResult has no field "name"; only __typename can be selected`},
		},
		{
			name: "__typename alias on interface",
			sel:  selection.New(selection.F("node").Arg("id", "1").Select(selection.F("login").As("__typename"))),
			want: FieldError{Kind: ReservedResponseKey, Path: "node.__typename", OnType: "Owner", Field: "login",
				Message: `alias __typename is reserved for the type name of Owner`},
		},
		{
			name: "argument on __typename",
			sel:  repo(selection.F("__typename").Arg("x", 1)),
			want: FieldError{Kind: NoSuchArgument, Path: "repository.__typename", OnType: "Repository", Field: "__typename", Argument: "x",
				Message: `field Repository.__typename has no argument "x"`},
		},
	}
	s := mustGithub(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(s, Query, tt.sel)
			verr := validationError(t, err)
			errs := verr.Errors()
			require.Len(t, errs, 1, "errors: %v", err)
			if diff := cmp.Diff(tt.want, *errs[0]); diff != "" {
				t.Errorf("error mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidationErrorTreeMirrorsSelection(t *testing.T) {
	s := mustGithub(t)
	sel := selection.New(
		selection.F("repository").Arg("owner", "o").Arg("name", "n").Select(
			selection.F("name"),
			selection.F("foo"),
			selection.F("owner").Select(selection.F("bar"), selection.F("login")),
		),
		selection.F("nope"),
		selection.F("node").Arg("id", "1").Select(selection.F("login")),
	)

	_, err := Validate(s, Query, sel)
	verr := validationError(t, err)

	require.Equal(t, []string{"repository.foo", "repository.owner.bar", "nope"}, verr.Paths())

	all := selectionPaths(sel, "")
	for _, p := range verr.Paths() {
		require.True(t, all[p], "%s is not a path of the selection", p)
	}

	require.Len(t, verr.Fields, 2)
	repo := verr.Fields[0]
	require.Equal(t, "repository", repo.Key)
	require.Empty(t, repo.Errors)
	require.Equal(t, []string{"foo", "owner"}, []string{repo.Fields[0].Key, repo.Fields[1].Key})
	require.Equal(t, "Owner", repo.Fields[1].Fields[0].Errors[0].OnType)
	require.Equal(t, "nope", verr.Fields[1].Key)

	require.Equal(t,
		`query: 3 validation errors: repository.foo: type Repository has no field "foo"; `+
			`repository.owner.bar: type Owner has no field "bar"; nope: type Query has no field "nope"`,
		err.Error())

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "repository.foo", fe.Path)
}

func TestValidationCollectsErrorsPerField(t *testing.T) {
	s := mustGithub(t)
	sel := selection.New(selection.F("repository").Arg("owner", 1).Arg("extra", true).Select(selection.F("foo")))

	_, err := Validate(s, Query, sel)
	verr := validationError(t, err)

	var kinds []ErrorKind
	for _, e := range verr.Errors() {
		kinds = append(kinds, e.Kind)
	}
	require.Equal(t, []ErrorKind{InvalidArgumentValue, NoSuchArgument, MissingRequiredArgument, NoSuchField}, kinds)
	require.Equal(t, []string{"repository", "repository.foo"}, verr.Paths())
}

func TestValidateRoots(t *testing.T) {
	_, err := Validate(mustSDL(t, repositorySDL), Mutation, helloWorld())
	require.ErrorIs(t, err, ErrNoMutationType)

	_, err = Validate(mustSDL(t, repositorySDL), Query, selection.Selection{})
	require.ErrorIs(t, err, ErrEmptySelection)

	s := mustGithub(t)
	v := mustValidate(t, s, Mutation, selection.New(selection.F("addStar").Arg("repository", "octocat/Hello-World").Select(selection.F("stars"))))
	require.Equal(t, Mutation, v.Operation())
	require.Equal(t, "Mutation", v.Root().Name)

	_, err = Validate(s, Mutation, helloWorld())
	verr := validationError(t, err)
	require.Equal(t, "Mutation", verr.Errors()[0].OnType)
}

func TestValidateArgumentCoercion(t *testing.T) {
	s := mustInputs(t)
	tests := []struct {
		name string
		sel  selection.Selection
		want string
	}{
		{
			name: "float accepts int",
			sel:  selection.New(selection.F("points").Arg("range", map[string]any{"from": "2024-03-01T10:00:00Z"}).Arg("scale", 2)),
			want: `{ points(range: {from: "2024-03-01"}, scale: 2) }`,
		},
		{
			name: "single value becomes nested list",
			sel:  selection.New(selection.F("points").Arg("range", map[string]any{"from": "2024-03-01T10:00:00Z"}).Arg("tags", "a")),
			want: `{ points(range: {from: "2024-03-01"}, tags: [["a"]]) }`,
		},
		{
			name: "null list item",
			sel:  selection.New(selection.F("points").Arg("range", map[string]any{"from": "2024-03-01T10:00:00Z", "to": nil}).Arg("tags", []any{nil, []any{"b", nil}})),
			want: `{ points(range: {from: "2024-03-01", to: null}, tags: [null, ["b", null]]) }`,
		},
		{
			name: "id accepts int",
			sel:  selection.New(selection.F("pick").Arg("by", map[string]any{"id": 7})),
			want: `{ pick(by: {id: 7}) }`,
		},
		{
			name: "custom scalar without codec accepts anything",
			sel:  selection.New(selection.F("echo").Arg("value", map[string]any{"nested": []any{1, "two", false}})),
			want: `{ echo(value: {nested: [1, "two", false]}) }`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustValidate(t, s, Query, tt.sel)
			require.Equal(t, tt.want, v.Render())
		})
	}
}

func TestValidateInputObjectRules(t *testing.T) {
	s := mustInputs(t)
	tests := []struct {
		name    string
		sel     selection.Selection
		wantMsg string
	}{
		{
			name:    "required input field",
			sel:     selection.New(selection.F("points").Arg("range", map[string]any{"to": "2024-03-01T10:00:00Z"})),
			wantMsg: `argument "range": field from of input object Range is required`,
		},
		{
			name:    "codec rejects value",
			sel:     selection.New(selection.F("points").Arg("range", map[string]any{"from": "yesterday"})),
			wantMsg: `argument "range": field from: encode Date: not a date`,
		},
		{
			name:    "oneOf with two fields",
			sel:     selection.New(selection.F("pick").Arg("by", map[string]any{"id": 1, "name": "x"})),
			wantMsg: `argument "by": exactly one field of input object Pick must be given and non-null`,
		},
		{
			name:    "oneOf with null",
			sel:     selection.New(selection.F("pick").Arg("by", map[string]any{"id": nil})),
			wantMsg: `argument "by": exactly one field of input object Pick must be given and non-null`,
		},
		{
			name:    "boolean is strict",
			sel:     selection.New(selection.F("pick").Arg("by", map[string]any{"name": true})),
			wantMsg: `argument "by": field name: expected String, got boolean true`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(s, Query, tt.sel)
			errs := validationError(t, err).Errors()
			require.Len(t, errs, 1)
			require.Equal(t, InvalidArgumentValue, errs[0].Kind)
			require.Contains(t, errs[0].Message, tt.wantMsg)
		})
	}
}

func TestEnumArgumentBinding(t *testing.T) {
	s := mustGithub(t)
	sel := selection.New(selection.F("repository").Arg("owner", "o").Arg("name", "n").Select(
		selection.F("issues").Arg("first", 5).Arg("filter", map[string]any{"states": "OPEN"}).Select(selection.F("title")),
	))
	v := mustValidate(t, s, Query, sel)
	require.Equal(t, `{ repository(owner: "o", name: "n") { issues(first: 5, filter: {states: [OPEN]}) { title } } }`, v.Render())
}

func TestImplicitTypename(t *testing.T) {
	s := mustGithub(t)

	v := mustValidate(t, s, Query, selection.New(selection.F("node").Arg("id", "1").Select(selection.F("login"))))
	require.Equal(t, `{ node(id: "1") { login __typename } }`, v.Render())
	children := v.Fields()[0].Children
	require.True(t, children[1].Implicit)
	require.Nil(t, children[1].Def)

	explicit := mustValidate(t, s, Query, selection.New(selection.F("node").Arg("id", "1").Select(selection.F("__typename"), selection.F("login"))))
	require.Equal(t, `{ node(id: "1") { __typename login } }`, explicit.Render())

	object := mustValidate(t, s, Query, helloWorld())
	require.Equal(t, `{ repository(owner: "octocat", name: "Hello-World") { name stars } }`, object.Render())

	renamed := mustValidate(t, s, Query, selection.New(selection.F("node").Arg("id", "1").Select(selection.F("__typename").As("kind"))))
	require.Equal(t, `{ node(id: "1") { kind: __typename __typename } }`, renamed.Render())

	// Outside abstract types the key carries no discriminator.
	aliased := mustValidate(t, s, Query, selection.New(selection.F("repository").Arg("owner", "o").Arg("name", "n").Select(selection.F("name").As("__typename"))))
	require.Equal(t, `{ repository(owner: "o", name: "n") { __typename: name } }`, aliased.Render())
}

func TestValidateIsIdempotent(t *testing.T) {
	s := mustGithub(t)
	sel := selection.New(
		selection.F("repository").Arg("owner", "o").Arg("name", "n").Select(
			selection.F("owner").Select(selection.F("login")),
			selection.F("issues").As("latest").Arg("first", 3).Select(selection.F("title"), selection.F("state")),
		),
		selection.F("search").Arg("query", "go").Select(selection.F("__typename")),
	)
	first := mustValidate(t, s, Query, sel)
	second := mustValidate(t, s, Query, first.Selection())
	require.True(t, Equal(first, second))
	require.Equal(t, first.Render(), second.Render())

	other := mustValidate(t, s, Query, helloWorld())
	require.False(t, Equal(first, other))
}

func TestValidateCyclicSchema(t *testing.T) {
	s := mustGithub(t)
	sel := selection.New(selection.F("repository").Arg("owner", "o").Arg("name", "n").Select(
		selection.F("issues").Arg("first", 1).Select(
			selection.F("repository").Select(
				selection.F("issues").Arg("first", 1).Select(selection.F("repository").Select(selection.F("name"))),
			),
		),
	))
	v := mustValidate(t, s, Query, sel)
	require.Equal(t,
		`{ repository(owner: "o", name: "n") { issues(first: 1) { repository { issues(first: 1) { repository { name } } } } } }`,
		v.Render())
}

func TestValidateDanglingReference(t *testing.T) {
	s := schema.NewSchema("")
	s.SetQueryType("Query")
	s.AddType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(&schema.Field{Name: "ghost", Type: schema.NamedType("Ghost")}))

	_, err := Validate(s, Query, selection.New(selection.F("ghost")))
	var unknown *schema.UnknownTypeError
	require.True(t, errors.As(err, &unknown), "got %v", err)
	require.Equal(t, "Ghost", unknown.Name)
}
