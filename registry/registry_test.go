package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okanra/serigraph/schema"
)

func TestRegisterLookup(t *testing.T) {
	r := New()
	author := schema.NewBuilder("author").Field("name").MustBuild()
	book := schema.NewBuilder("book").Field("title").MustBuild()

	require.NoError(t, r.Register("author", author))
	require.NoError(t, r.Register("book", book))
	require.Error(t, r.Register("author", book), "duplicate tag must fail")
	require.Error(t, r.Register("", author))
	require.Error(t, r.Register("nil", nil))

	got, ok := r.Lookup("book")
	require.True(t, ok)
	require.Same(t, book, got)

	_, ok = r.Lookup("missing")
	require.False(t, ok)

	require.Equal(t, []string{"author", "book"}, r.Tags())
}

func TestResolver(t *testing.T) {
	r := New()
	dog := schema.NewBuilder("dog").Field("bark").MustBuild()
	require.NoError(t, r.Register("dog", dog))

	res := r.Resolver(func(v any) string {
		rec, _ := v.(map[string]any)
		tag, _ := rec["kind"].(string)
		return tag
	})

	got, err := res.ResolveTarget(map[string]any{"kind": "dog"}, nil)
	require.NoError(t, err)
	require.Same(t, dog, got)

	_, err = res.ResolveTarget(map[string]any{"kind": "cat"}, nil)
	require.ErrorContains(t, err, `no schema registered for tag "cat"`)
}
