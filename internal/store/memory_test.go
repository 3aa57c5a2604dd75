package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySaveAndQuery(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	item := &MemoryItem{Content: "prefers dark mode", Importance: 5}
	require.NoError(t, s.SaveMemory(ctx, item))
	assert.Contains(t, item.ID, "mem_")
	assert.Equal(t, "fact", item.Type)

	require.NoError(t, s.SaveMemory(ctx, &MemoryItem{Type: "note", Content: "standup at 9:30", Importance: 2}))

	items, err := s.QueryMemories(ctx, MemoryFilter{MinImportance: 4})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "prefers dark mode", items[0].Content)

	items, err = s.QueryMemories(ctx, MemoryFilter{Search: "standup"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "note", items[0].Type)
}

func TestMemoryExpiry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	expired := &MemoryItem{Content: "lunch order", ExpiresAt: &past}
	require.NoError(t, s.SaveMemory(ctx, expired))

	pinnedExpired := &MemoryItem{Content: "wifi password", Pinned: true, ExpiresAt: &past}
	require.NoError(t, s.SaveMemory(ctx, pinnedExpired))

	items, err := s.QueryMemories(ctx, MemoryFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "wifi password", items[0].Content)

	// Cleanup removes only the expired unpinned item.
	removed, err := s.CleanupExpiredMemories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.GetMemory(ctx, pinnedExpired.ID)
	assert.NoError(t, err)
}

func TestMemoryUpdatePinDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	item := &MemoryItem{Content: "likes tea"}
	require.NoError(t, s.SaveMemory(ctx, item))

	require.NoError(t, s.UpdateMemory(ctx, item.ID, "likes green tea", 4))
	require.NoError(t, s.PinMemory(ctx, item.ID, true))

	got, err := s.GetMemory(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "likes green tea", got.Content)
	assert.Equal(t, 4, got.Importance)
	assert.True(t, got.Pinned)

	require.NoError(t, s.DeleteMemory(ctx, item.ID))
	_, err = s.GetMemory(ctx, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.UpdateMemory(ctx, "mem_missing", "x", 1), ErrNotFound)
	assert.ErrorIs(t, s.PinMemory(ctx, "mem_missing", true), ErrNotFound)
	assert.ErrorIs(t, s.DeleteMemory(ctx, "mem_missing"), ErrNotFound)
}

func TestMemoryStatsCounts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveMemory(ctx, &MemoryItem{Type: "fact", Content: "a"}))
	require.NoError(t, s.SaveMemory(ctx, &MemoryItem{Type: "fact", Content: "b", Pinned: true}))
	require.NoError(t, s.SaveMemory(ctx, &MemoryItem{Type: "note", Content: "c"}))

	stats, err := s.GetMemoryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pinned)
	assert.Equal(t, 2, stats.ByType["fact"])
	assert.Equal(t, 1, stats.ByType["note"])
}

func TestPreferences(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetPreference(ctx, "tone", "casual"))
	require.NoError(t, s.SetPreference(ctx, "tone", "concise"))

	val, err := s.GetPreference(ctx, "tone")
	require.NoError(t, err)
	assert.Equal(t, "concise", val)

	require.NoError(t, s.SetPreference(ctx, "units", "metric"))
	prefs, err := s.ListPreferences(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, "tone", prefs[0].Key)
	assert.Equal(t, "units", prefs[1].Key)

	// Empty value clears the key.
	require.NoError(t, s.SetPreference(ctx, "units", ""))
	_, err = s.GetPreference(ctx, "units")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSkillCounters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSkillUse(ctx, "shell", true))
	require.NoError(t, s.RecordSkillUse(ctx, "shell", true))
	require.NoError(t, s.RecordSkillUse(ctx, "shell", false))
	require.NoError(t, s.RecordSkillUse(ctx, "notes", true))

	sk, err := s.GetSkill(ctx, "shell")
	require.NoError(t, err)
	assert.Equal(t, 3, sk.Uses)
	assert.Equal(t, 2, sk.Successes)
	assert.NotNil(t, sk.LastUsedAt)

	skills, err := s.ListSkills(ctx, 5)
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "shell", skills[0].Name)
}

func TestVectorRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	item := &MemoryItem{Content: "prefers dark mode"}
	require.NoError(t, s.SaveMemory(ctx, item))

	emb := []float32{0.1, -0.5, 0.25, 1.0}
	require.NoError(t, s.SaveVector(ctx, item.ID, emb, "text-embedding-004"))

	vectors, err := s.AllVectors(ctx)
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, item.ID, vectors[0].MemoryID)
	assert.Equal(t, emb, vectors[0].Embedding)
	assert.Equal(t, "text-embedding-004", vectors[0].Model)

	// Deleting the memory cascades to the vector row.
	require.NoError(t, s.DeleteMemory(ctx, item.ID))
	count, err := s.CountVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
