package schema

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testSDL = `
type Query {
  post(id: ID!): Post
  search(term: String!, limit: Int = 10): [Node!]
}

type Post implements Node {
  id: ID!
  title: String!
  status: Status!
  tags: [String!]!
}

type Comment implements Node {
  id: ID!
  body: String!
}

interface Node {
  id: ID!
}

union SearchResult = Post | Comment

enum Status {
  DRAFT
  PUBLISHED
}

input PostFilter {
  status: Status = PUBLISHED
  limit: Int = 25
}
`

func mustFromSDL(t *testing.T, bind Bind) *Schema {
	t.Helper()
	s, err := FromSDL("test.graphql", testSDL, bind)
	if err != nil {
		t.Fatalf("FromSDL: %v", err)
	}
	return s
}

func TestFromSDL_TypeKinds(t *testing.T) {
	s := mustFromSDL(t, Bind{})

	cases := map[string]TypeKind{
		"Query":        TypeKindObject,
		"Post":         TypeKindObject,
		"Node":         TypeKindInterface,
		"SearchResult": TypeKindUnion,
		"Status":       TypeKindEnum,
		"PostFilter":   TypeKindInputObject,
		"String":       TypeKindScalar,
		"ID":           TypeKindScalar,
	}
	for name, kind := range cases {
		typ := s.Types[name]
		if typ == nil {
			t.Fatalf("type %s missing", name)
		}
		if typ.Kind != kind {
			t.Fatalf("%s kind = %v, want %v", name, typ.Kind, kind)
		}
	}
}

func TestFromSDL_FieldTypeWrapping(t *testing.T) {
	s := mustFromSDL(t, Bind{})

	tags := s.Types["Post"].Field("tags")
	if tags == nil {
		t.Fatal("Post.tags missing")
	}
	// [String!]!
	if !tags.Type.IsNonNull() {
		t.Fatal("outer non-null lost")
	}
	inner := tags.Type.Unwrap()
	if !inner.IsList() {
		t.Fatal("list wrapper lost")
	}
	elem := inner.Unwrap()
	if !elem.IsNonNull() || elem.Unwrap().Named != "String" {
		t.Fatalf("element type = %+v", elem)
	}
	if got := tags.Type.GetNamedType(); got != "String" {
		t.Fatalf("named type = %q", got)
	}
}

func TestFromSDL_ResolverBinding(t *testing.T) {
	called := false
	s := mustFromSDL(t, Bind{
		Resolvers: map[string]Resolver{
			"Query.post": func(p ResolveParams) any {
				called = true
				return nil
			},
		},
	})

	post := s.Types["Query"].Field("post")
	if post.Resolve == nil {
		t.Fatal("resolver not bound")
	}
	post.Resolve(ResolveParams{})
	if !called {
		t.Fatal("bound resolver not invoked")
	}
	if s.Types["Query"].Field("search").Resolve != nil {
		t.Fatal("unbound field must fall back to source lookup")
	}
}

func TestFromSDL_ArgumentDefaults(t *testing.T) {
	s := mustFromSDL(t, Bind{})

	args := s.Types["Query"].Field("search").Arguments
	if len(args) != 2 {
		t.Fatalf("want 2 arguments, got %d", len(args))
	}
	if args[1].Name != "limit" || args[1].DefaultValue != 10 {
		t.Fatalf("limit default = %v", args[1].DefaultValue)
	}
	if args[0].DefaultValue != nil {
		t.Fatalf("term must have no default, got %v", args[0].DefaultValue)
	}
}

func TestFromSDL_InputObjectDefaults(t *testing.T) {
	s := mustFromSDL(t, Bind{})

	fields := s.Types["PostFilter"].InputFields
	byName := map[string]any{}
	for _, f := range fields {
		byName[f.Name] = f.DefaultValue
	}
	want := map[string]any{"status": "PUBLISHED", "limit": 25}
	if diff := cmp.Diff(want, byName); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestFromSDL_AbstractTypes(t *testing.T) {
	s := mustFromSDL(t, Bind{
		TypeResolver: map[string]func(ctx context.Context, value any) (string, error){
			"Node": func(ctx context.Context, value any) (string, error) { return "Post", nil },
		},
	})

	node := s.Types["Node"]
	if diff := cmp.Diff([]string{"Post", "Comment"}, node.PossibleTypes); diff != "" {
		t.Fatalf("interface possible types mismatch (-want +got):\n%s", diff)
	}
	if node.ResolveType == nil {
		t.Fatal("type resolver not bound")
	}

	union := s.Types["SearchResult"]
	if diff := cmp.Diff([]string{"Post", "Comment"}, union.PossibleTypes); diff != "" {
		t.Fatalf("union possible types mismatch (-want +got):\n%s", diff)
	}
}

func TestFromSDL_EnumValues(t *testing.T) {
	s := mustFromSDL(t, Bind{})
	if diff := cmp.Diff([]string{"DRAFT", "PUBLISHED"}, s.Types["Status"].EnumValues); diff != "" {
		t.Fatalf("enum values mismatch (-want +got):\n%s", diff)
	}
}

func TestFromSDL_SchemaDefinitionOverridesRoots(t *testing.T) {
	s, err := FromSDL("roots.graphql", `
schema {
  query: Root
}

type Root {
  ping: String
}
`, Bind{})
	if err != nil {
		t.Fatalf("FromSDL: %v", err)
	}
	if s.QueryType != "Root" {
		t.Fatalf("query type = %q", s.QueryType)
	}
	if s.MutationType != "Mutation" {
		t.Fatalf("mutation type = %q", s.MutationType)
	}
}
