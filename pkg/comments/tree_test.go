package comments

import (
	"testing"
)

func flatComment(id, parentID interface{}) *Comment {
	return &Comment{ID: id, ParentID: parentID, PostID: "post1"}
}

func countNodes(forest []*Node) int {
	total := 0
	for _, n := range forest {
		total += 1 + countNodes(n.Children)
	}
	return total
}

func TestBuildTreeNesting(t *testing.T) {
	// a
	// ├── b
	// │   └── d
	// └── c
	flat := []*Comment{
		flatComment("a", nil),
		flatComment("b", "a"),
		flatComment("c", "a"),
		flatComment("d", "b"),
	}

	forest, err := BuildTree(flat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(forest) != 1 || forest[0].Comment.ID != "a" {
		t.Fatalf("expected single root a, got %v roots", len(forest))
	}
	a := forest[0]
	if len(a.Children) != 2 || a.Children[0].Comment.ID != "b" || a.Children[1].Comment.ID != "c" {
		t.Fatalf("wrong children of a: %v", a.Children)
	}
	if len(a.Children[0].Children) != 1 || a.Children[0].Children[0].Comment.ID != "d" {
		t.Fatalf("d not nested under b")
	}
	if countNodes(forest) != len(flat) {
		t.Errorf("forest lost comments, expected %v but was %v", len(flat), countNodes(forest))
	}
}

func TestBuildTreeSiblingOrder(t *testing.T) {
	flat := []*Comment{
		flatComment("root", nil),
		flatComment("x", "root"),
		flatComment("y", "root"),
		flatComment("z", "root"),
	}

	forest, err := BuildTree(flat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := forest[0].Children
	want := []interface{}{"x", "y", "z"}
	for i, id := range want {
		if got[i].Comment.ID != id {
			t.Errorf("sibling #%d out of order, expected %v but was %v", i, id, got[i].Comment.ID)
		}
	}
}

func TestBuildTreeOrphans(t *testing.T) {
	// B's parent exists, C's parent was deleted
	flat := []*Comment{
		flatComment("A", nil),
		flatComment("B", "A"),
		flatComment("C", "missing"),
	}

	forest, err := BuildTree(flat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(forest) != 2 {
		t.Fatalf("expected 2 roots, got %v", len(forest))
	}
	if forest[0].Comment.ID != "A" || forest[1].Comment.ID != "C" {
		t.Fatalf("wrong roots: %v, %v", forest[0].Comment.ID, forest[1].Comment.ID)
	}
	if len(forest[0].Children) != 1 || forest[0].Children[0].Comment.ID != "B" {
		t.Errorf("B not attached to A")
	}
	if countNodes(forest) != len(flat) {
		t.Errorf("forest lost comments, expected %v but was %v", len(flat), countNodes(forest))
	}
}

func TestBuildTreeCycle(t *testing.T) {
	// a and b reference each other
	flat := []*Comment{
		flatComment("a", "b"),
		flatComment("b", "a"),
		flatComment("ok", nil),
	}

	forest, err := BuildTree(flat)
	if err != ErrMalformedInput {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}

	// the forest is still complete: nothing is dropped
	if countNodes(forest) != len(flat) {
		t.Errorf("forest lost comments, expected %v but was %v", len(flat), countNodes(forest))
	}
}

func TestBuildTreeSelfParent(t *testing.T) {
	flat := []*Comment{
		flatComment("self", "self"),
	}

	forest, err := BuildTree(flat)
	if err != ErrMalformedInput {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
	if len(forest) != 1 || forest[0].Comment.ID != "self" {
		t.Fatalf("self-referencing comment should surface as a root")
	}
	if len(forest[0].Children) != 0 {
		t.Errorf("self-referencing comment must not contain itself")
	}
}

func TestBuildTreeEmpty(t *testing.T) {
	forest, err := BuildTree(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forest) != 0 {
		t.Fatalf("expected empty forest, got %v roots", len(forest))
	}
}
