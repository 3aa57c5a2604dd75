package semantic

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/store"
)

// fakeEmbedder maps known phrases to fixed unit vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) GetModel() string { return "fake-embedding" }

func setupIndexTest(t *testing.T) (*store.SQLiteStore, *fakeEmbedder) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	emb := &fakeEmbedder{vectors: map[string][]float32{
		"prefers dark mode": {1, 0, 0},
		"display theme":     {0.95, 0.3, 0},
		"standup at 9:30":   {0, 1, 0},
	}}
	return s, emb
}

func TestIndexSearchRanksBySimilarity(t *testing.T) {
	s, emb := setupIndexTest(t)
	ctx := context.Background()
	ix := NewIndex(s, emb, 0.7)
	require.True(t, ix.Available())

	for _, content := range []string{"prefers dark mode", "standup at 9:30"} {
		item := &store.MemoryItem{Content: content}
		require.NoError(t, s.SaveMemory(ctx, item))
		ix.IndexItem(ctx, item)
	}

	matches, err := ix.Search(ctx, "display theme", 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "prefers dark mode", matches[0].Content)
	assert.Greater(t, matches[0].Score, float32(0.7))
}

func TestIndexUnavailableWithoutEmbedder(t *testing.T) {
	s, _ := setupIndexTest(t)
	ix := NewIndex(s, nil, 0.7)

	assert.False(t, ix.Available())

	matches, err := ix.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// IndexItem on an unavailable index is a no-op, not a panic.
	ix.IndexItem(context.Background(), &store.MemoryItem{ID: "mem_x", Content: "x"})
}

func TestIndexRebuild(t *testing.T) {
	s, emb := setupIndexTest(t)
	ctx := context.Background()

	for _, content := range []string{"prefers dark mode", "standup at 9:30"} {
		require.NoError(t, s.SaveMemory(ctx, &store.MemoryItem{Content: content}))
	}

	ix := NewIndex(s, emb, 0.7)
	count, err := ix.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	vectors, err := s.AllVectors(ctx)
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
}

func TestNewEmbedderDefaultsModel(t *testing.T) {
	assert.Equal(t, "text-embedding-004", NewEmbedder(nil, "").GetModel())
	assert.Equal(t, "custom-embedding", NewEmbedder(nil, "custom-embedding").GetModel())
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, float32(0), CosineSimilarity(nil, nil))
}
