package keycase

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCamel(t *testing.T) {
	cases := map[string]string{
		"per_page":    "perPage",
		"total_pages": "totalPages",
		"id":          "id",
		"alreadyCame": "alreadyCame",
		"a_b_c":       "aBC",
		"_leading":    "leading",
		"trailing_":   "trailing",
		"__":          "__",
	}
	for in, want := range cases {
		if got := Camel(in); got != want {
			t.Errorf("Camel(%q) = %q, want %q", in, got, want)
		}
		// Second call hits the cache.
		if got := Camel(in); got != want {
			t.Errorf("cached Camel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCamelizeKeys(t *testing.T) {
	in := map[string]any{
		"user_name": "John",
		"posts": []any{
			map[string]any{"created_at": "2021-01-01", "like_count": 2},
		},
		"meta": map[string]any{"per_page": 20},
	}
	want := map[string]any{
		"userName": "John",
		"posts": []any{
			map[string]any{"createdAt": "2021-01-01", "likeCount": 2},
		},
		"meta": map[string]any{"perPage": 20},
	}
	if diff := cmp.Diff(want, CamelizeKeys(in, 0)); diff != "" {
		t.Fatalf("CamelizeKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestCamelizeKeysDepthGuard(t *testing.T) {
	in := map[string]any{
		"level_one": map[string]any{
			"level_two": map[string]any{"level_three": 1},
		},
	}
	got := CamelizeKeys(in, 1).(map[string]any)
	one := got["levelOne"].(map[string]any)
	// Budget exhausted below the first level: the subtree is returned as-is.
	two, ok := one["level_two"].(map[string]any)
	if !ok {
		t.Fatalf("expected level_two untouched, got %#v", one)
	}
	if _, ok := two["level_three"]; !ok {
		t.Fatalf("expected level_three untouched, got %#v", two)
	}
}

func TestCamelizeKeysNonContainer(t *testing.T) {
	if got := CamelizeKeys(42, 0); got != 42 {
		t.Fatalf("scalar input must pass through, got %v", got)
	}
	if got := CamelizeKeys(nil, 0); got != nil {
		t.Fatalf("nil input must pass through, got %v", got)
	}
}
