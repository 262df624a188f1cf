package projector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlatten_TreeToDottedPaths(t *testing.T) {
	p := ProjectedName{
		Name: "author",
		Children: []ProjectedName{
			{Name: "id"},
			{Name: "profile", Children: []ProjectedName{{Name: "bio"}}},
		},
	}

	want := []string{"author", "author.id", "author.profile", "author.profile.bio"}
	if diff := cmp.Diff(want, p.Flatten()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenAll_KeepsDeclarationOrder(t *testing.T) {
	names := []ProjectedName{
		{Name: "title"},
		{Name: "author", Children: []ProjectedName{{Name: "name"}}},
		{Name: "tags"},
	}

	want := []string{"title", "author", "author.name", "tags"}
	if diff := cmp.Diff(want, FlattenAll(names)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_InvertsFlattenForChains(t *testing.T) {
	got := Parse("author.profile.bio")

	want := ProjectedName{Name: "author", Children: []ProjectedName{
		{Name: "profile", Children: []ProjectedName{{Name: "bio"}}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"author", "author.profile", "author.profile.bio"}, got.Flatten()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_SingleName(t *testing.T) {
	if diff := cmp.Diff(ProjectedName{Name: "id"}, Parse("id")); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
