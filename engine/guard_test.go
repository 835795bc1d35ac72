package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/okanra/serigraph/schema"
	"github.com/okanra/serigraph/within"
)

// authorBookSchemas builds the canonical two-node cycle: author has many
// books, each book points back at its author.
func authorBookSchemas() (author, book *schema.Schema) {
	authorB := schema.NewBuilder("author")
	bookB := schema.NewBuilder("book")
	author = authorB.
		Field("name").
		HasMany("books", bookB.Ref()).
		MustBuild()
	book = bookB.
		Field("title").
		HasOne("author", authorB.Ref()).
		MustBuild()
	return author, book
}

// cyclicAuthor returns an input graph where author and book reference each
// other, so only the guard keeps serialization finite.
func cyclicAuthor() map[string]any {
	author := map[string]any{"name": "Ann"}
	book := map[string]any{"title": "Gone", "author": author}
	author["books"] = []any{book}
	return author
}

func TestWithinAbsentIsUnrestricted(t *testing.T) {
	author, _ := authorBookSchemas()

	got := mustSerializeMap(t, author, cyclicAuthor(), Options{MaxDepth: 3})
	books := got["books"].([]any)
	book := books[0].(map[string]any)
	nested := book["author"].(map[string]any)
	// Depth budget, not the within-tree, is what stopped the recursion.
	if diff := cmp.Diff([]any{}, nested["books"]); diff != "" {
		t.Fatalf("depth budget mismatch (-want +got):\n%s", diff)
	}
}

func TestWithinEmptyForbidsAll(t *testing.T) {
	author, _ := authorBookSchemas()

	got := mustSerializeMap(t, author, cyclicAuthor(), Options{Within: within.Empty()})
	// Denied relationships resolve to the cardinality-appropriate empty value.
	if diff := cmp.Diff([]any{}, got["books"]); diff != "" {
		t.Fatalf("expected empty books (-want +got):\n%s", diff)
	}
}

func TestWithinBareMarkerStopsNesting(t *testing.T) {
	author, _ := authorBookSchemas()

	got := mustSerializeMap(t, author, cyclicAuthor(), Options{Within: within.Allow("books")})
	books := got["books"].([]any)
	book := books[0].(map[string]any)
	// books was permitted, but its own relationships got the empty tree.
	if book["title"] != "Gone" {
		t.Fatalf("permitted level must serialize fields: %v", book)
	}
	if book["author"] != nil {
		t.Fatalf("bare marker must forbid the next level, got %v", book["author"])
	}
}

func TestWithinNestedTreeNarrows(t *testing.T) {
	author, _ := authorBookSchemas()

	tr := within.New(map[string]*within.Tree{"books": within.Allow("author")})
	got := mustSerializeMap(t, author, cyclicAuthor(), Options{Within: tr, MaxDepth: 5})
	book := got["books"].([]any)[0].(map[string]any)
	nested := book["author"].(map[string]any)
	if nested["name"] != "Ann" {
		t.Fatalf("nested permitted relationship must serialize: %v", nested)
	}
	// author was a bare marker inside books, so its own books are denied.
	if diff := cmp.Diff([]any{}, nested["books"]); diff != "" {
		t.Fatalf("bare marker child mismatch (-want +got):\n%s", diff)
	}
}

func TestWithinDenialOmitsDescent(t *testing.T) {
	calls := 0
	inner := schema.NewBuilder("inner").
		Field("n", schema.Computed(func(any, schema.Params) (any, error) {
			calls++
			return calls, nil
		})).
		MustBuild()
	outer := schema.NewBuilder("outer").
		HasOne("child", inner).
		MustBuild()

	got := mustSerializeMap(t, outer,
		map[string]any{"child": map[string]any{}},
		Options{Within: within.Empty()})
	if got["child"] != nil {
		t.Fatalf("denied one-relationship must be nil, got %v", got["child"])
	}
	if calls != 0 {
		t.Fatal("denial must short-circuit before invoking the target schema")
	}
}

func TestDepthEnforcementTwoNodeCycle(t *testing.T) {
	author, _ := authorBookSchemas()

	got := mustSerializeMap(t, author, cyclicAuthor(), Options{MaxDepth: 1})
	if diff := cmp.Diff([]any{}, got["books"]); diff != "" {
		t.Fatalf("max_depth 1 must stop before the first hop (-want +got):\n%s", diff)
	}

	got = mustSerializeMap(t, author, cyclicAuthor(), Options{MaxDepth: 2})
	book := got["books"].([]any)[0].(map[string]any)
	if book["title"] != "Gone" {
		t.Fatalf("first hop must serialize under max_depth 2: %v", book)
	}
	if book["author"] != nil {
		t.Fatalf("second hop must be cut to nil under max_depth 2, got %v", book["author"])
	}
}

func TestDepthBeatsPermissiveWithin(t *testing.T) {
	// Self-referential schema plus fully permissive within: the depth budget
	// must still terminate the recursion.
	b := schema.NewBuilder("node")
	node := b.
		Field("id").
		HasOne("next", b.Ref()).
		MustBuild()

	// A true object cycle.
	n1 := map[string]any{"id": 1}
	n2 := map[string]any{"id": 2, "next": n1}
	n1["next"] = n2

	got := mustSerializeMap(t, node, n1, Options{MaxDepth: 4})
	depth := 0
	cur := got
	for {
		next, ok := cur["next"].(map[string]any)
		if !ok {
			if cur["next"] != nil {
				t.Fatalf("expected nil terminator, got %v", cur["next"])
			}
			break
		}
		depth++
		cur = next
	}
	if depth != 3 {
		t.Fatalf("max_depth 4 must allow exactly 3 hops, got %d", depth)
	}
}

func TestHasManyCommentsWithinVariants(t *testing.T) {
	commentB := schema.NewBuilder("comment")
	comment := commentB.
		Field("body").
		HasOne("replies", commentB.Ref()).
		MustBuild()
	post := schema.NewBuilder("post").
		Field("title").
		HasMany("comments", comment).
		MustBuild()

	input := map[string]any{
		"title": "Hello",
		"comments": []any{
			map[string]any{"body": "first", "replies": map[string]any{"body": "nested"}},
			map[string]any{"body": "second"},
		},
	}

	// Forbid-all within: comments resolve to the empty sequence.
	got := mustSerializeMap(t, post, input, Options{Within: within.Empty()})
	if diff := cmp.Diff([]any{}, got["comments"]); diff != "" {
		t.Fatalf("empty within mismatch (-want +got):\n%s", diff)
	}

	// Explicitly permitted comments serialize, with their own relationships
	// stripped.
	got = mustSerializeMap(t, post, input, Options{Within: within.Allow("comments")})
	want := []any{
		map[string]any{"body": "first", "replies": nil},
		map[string]any{"body": "second", "replies": nil},
	}
	if diff := cmp.Diff(want, got["comments"]); diff != "" {
		t.Fatalf("permitted comments mismatch (-want +got):\n%s", diff)
	}
}
