package kb

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder is a deterministic local embedding function: a normalized
// bag-of-words projection. Texts sharing words land close together, which is
// enough to exercise ranking without a network call.
func fakeEmbedder() chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		text = strings.TrimPrefix(text, QueryTaskPrefix)
		v := make([]float32, 32)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(word))
			v[h.Sum32()%32]++
		}
		normalize(v)
		return v, nil
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), fakeEmbedder(), nil)
	require.NoError(t, err)
	return store
}

func TestCreateCollection(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateCollection("first_aid"))
	assert.True(t, store.HasCollection("first_aid"))

	err := store.CreateCollection("first_aid")
	assert.ErrorIs(t, err, ErrCollectionExists)

	require.NoError(t, store.CreateCollection("burns"))
	assert.Equal(t, []string{"burns", "first_aid"}, store.ListCollections())
}

func TestAddAndQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateCollection("kb"))

	inserted, err := store.Add(ctx, "kb", []Chunk{
		{Source: "burns.txt", Index: 0, Text: "cool the burn under running water"},
		{Source: "cpr.txt", Index: 0, Text: "start chest compressions immediately"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	count, err := store.Count("kb")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := store.Query(ctx, "kb", "how to treat a burn with water", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "burns.txt", results[0].Source)
	assert.Equal(t, 0, results[0].Index)
	// Ranked ascending by distance.
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestQueryClampsKAndHandlesEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateCollection("kb"))

	// Empty collection: no results, no error.
	results, err := store.Query(ctx, "kb", "anything", 100)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = store.Add(ctx, "kb", []Chunk{{Source: "s.txt", Index: 0, Text: "lone chunk"}})
	require.NoError(t, err)

	// Over-fetching beyond the collection size is clamped, not an error.
	results, err = store.Query(ctx, "kb", "lone", 100)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestAddOverwritesSameSourceAndIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateCollection("kb"))

	_, err := store.Add(ctx, "kb", []Chunk{{Source: "doc.txt", Index: 0, Text: "old text"}})
	require.NoError(t, err)
	_, err = store.Add(ctx, "kb", []Chunk{{Source: "doc.txt", Index: 0, Text: "new text"}})
	require.NoError(t, err)

	count, err := store.Count("kb")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-ingesting the same (source, index) must overwrite")

	results, err := store.Query(ctx, "kb", "new text", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new text", results[0].Text)
}

func TestDeleteBySourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateCollection("kb"))

	_, err := store.Add(ctx, "kb", []Chunk{
		{Source: "a.txt", Index: 0, Text: "alpha one"},
		{Source: "a.txt", Index: 1, Text: "alpha two"},
		{Source: "a.txt", Index: 2, Text: "alpha three"},
		{Source: "b.txt", Index: 0, Text: "beta one"},
	})
	require.NoError(t, err)

	deleted, err := store.DeleteBySource(ctx, "kb", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	count, err := store.Count("kb")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := store.Query(ctx, "kb", "beta", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.txt", results[0].Source)

	// Deleting an absent source removes nothing.
	deleted, err = store.DeleteBySource(ctx, "kb", "missing.txt")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestClearAndDeleteCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateCollection("kb"))

	_, err := store.Add(ctx, "kb", []Chunk{{Source: "s.txt", Index: 0, Text: "content"}})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "kb"))
	count, err := store.Count("kb")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, store.HasCollection("kb"))

	require.NoError(t, store.DeleteCollection("kb"))
	assert.False(t, store.HasCollection("kb"))

	assert.ErrorIs(t, store.DeleteCollection("kb"), ErrCollectionNotFound)
	assert.ErrorIs(t, store.Clear(ctx, "kb"), ErrCollectionNotFound)
	_, err = store.Query(ctx, "kb", "q", 1)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	_, err = store.Add(ctx, "kb", nil)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestChunkID(t *testing.T) {
	c := Chunk{Source: "guide.txt", Index: 4}
	assert.Equal(t, "doc_guide.txt_4", c.ID())
}
