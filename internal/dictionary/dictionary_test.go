package dictionary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/websearch/indexd/internal/index"
)

type stubWordStore struct {
	words []index.Word
	err   error
}

func (s *stubWordStore) LoadAll(context.Context) ([]index.Word, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.words, nil
}

func TestSetContainsIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	store := &stubWordStore{words: []index.Word{
		{ID: 1, Text: "Coffee"},
		{ID: 2, Text: "machine"},
	}}
	set := NewSet(store, nil)
	require.NoError(t, set.Reload(context.Background()))

	require.True(t, set.Contains("coffee"))
	require.True(t, set.Contains("COFFEE"))
	require.True(t, set.Contains("Machine"))
	require.False(t, set.Contains("espresso"))
	require.Equal(t, 2, set.Len())
}

func TestSetEmptyBeforeReload(t *testing.T) {
	t.Parallel()

	set := NewSet(&stubWordStore{}, nil)
	require.False(t, set.Contains("anything"))
	require.Zero(t, set.Len())
}

func TestSetReloadSwapsAtomically(t *testing.T) {
	t.Parallel()

	store := &stubWordStore{words: []index.Word{{ID: 1, Text: "old"}}}
	set := NewSet(store, nil)
	require.NoError(t, set.Reload(context.Background()))
	require.True(t, set.Contains("old"))

	store.words = []index.Word{{ID: 2, Text: "new"}}
	require.NoError(t, set.Reload(context.Background()))
	require.True(t, set.Contains("new"))
	require.False(t, set.Contains("old"))
}

func TestSetReloadFailureKeepsCurrent(t *testing.T) {
	t.Parallel()

	store := &stubWordStore{words: []index.Word{{ID: 1, Text: "kept"}}}
	set := NewSet(store, nil)
	require.NoError(t, set.Reload(context.Background()))

	store.err = errors.New("db down")
	require.Error(t, set.Reload(context.Background()))
	require.True(t, set.Contains("kept"))
}
