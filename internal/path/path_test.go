package path

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vektah/gqlparser/v2/ast"
)

func TestPath_AppendDoesNotMutateParent(t *testing.T) {
	parent := Root.AppendName("user")
	a := parent.AppendIndex(0)
	b := parent.AppendName("name")

	if got := parent.String(); got != "user" {
		t.Fatalf("parent mutated: %q", got)
	}
	if got := a.String(); got != "user[0]" {
		t.Fatalf("a = %q", got)
	}
	if got := b.String(); got != "user.name" {
		t.Fatalf("b = %q", got)
	}
}

func TestPath_Segments(t *testing.T) {
	p := Root.AppendName("user").AppendIndex(0).AppendName("name")
	want := []any{"user", 0, "name"}
	if diff := cmp.Diff(want, p.Segments()); diff != "" {
		t.Fatalf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestPath_HasPrefix(t *testing.T) {
	p := Root.AppendName("user").AppendIndex(0).AppendName("name")
	if !p.HasPrefix(Root) {
		t.Fatal("every path has the root prefix")
	}
	if !p.HasPrefix(Root.AppendName("user").AppendIndex(0)) {
		t.Fatal("expected ancestor prefix to match")
	}
	if p.HasPrefix(Root.AppendName("user").AppendIndex(1)) {
		t.Fatal("sibling index must not match")
	}
	if Root.AppendName("user").HasPrefix(p) {
		t.Fatal("longer prefix cannot match shorter path")
	}
}

func TestPath_KeyDistinguishesNamesFromIndexes(t *testing.T) {
	a := Root.AppendName("0")
	b := Root.AppendIndex(0)
	if a.Key() == b.Key() {
		t.Fatalf("name %q and index 0 collide: %q", "0", a.Key())
	}
}

func TestPath_ToAST(t *testing.T) {
	if got := Root.ToAST(); got != nil {
		t.Fatalf("root path must convert to nil, got %v", got)
	}
	p := Root.AppendName("user").AppendIndex(2)
	want := ast.Path{ast.PathName("user"), ast.PathIndex(2)}
	if diff := cmp.Diff(want, p.ToAST()); diff != "" {
		t.Fatalf("ast path mismatch (-want +got):\n%s", diff)
	}
}
