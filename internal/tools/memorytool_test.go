package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/store"
)

func setupToolStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryToolWriteAndQuery(t *testing.T) {
	s := setupToolStore(t)
	tool := NewMemoryTool(s, nil)
	ctx := context.Background()

	result, err := tool.Execute(ctx, map[string]any{
		"action":     MemoryActionWrite,
		"content":    "prefers dark mode",
		"importance": float64(5), // model numbers arrive as float64
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	result, err = tool.Execute(ctx, map[string]any{
		"action": MemoryActionQuery,
		"query":  "dark",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "prefers dark mode")
	assert.Contains(t, result.Content, "importance 5")
}

func TestMemoryToolPinUpdateDelete(t *testing.T) {
	s := setupToolStore(t)
	tool := NewMemoryTool(s, nil)
	ctx := context.Background()

	item := &store.MemoryItem{Content: "likes tea"}
	require.NoError(t, s.SaveMemory(ctx, item))

	result, err := tool.Execute(ctx, map[string]any{"action": MemoryActionPin, "id": item.ID})
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = tool.Execute(ctx, map[string]any{
		"action": MemoryActionUpdate, "id": item.ID, "content": "likes green tea",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = tool.Execute(ctx, map[string]any{"action": MemoryActionDelete, "id": item.ID})
	require.NoError(t, err)
	assert.True(t, result.Success)

	// Missing IDs become structured errors, not Go errors.
	result, err = tool.Execute(ctx, map[string]any{"action": MemoryActionDelete, "id": "mem_missing"})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestMemoryToolUpdateKeepsImportance(t *testing.T) {
	s := setupToolStore(t)
	tool := NewMemoryTool(s, nil)
	ctx := context.Background()

	result, err := tool.Execute(ctx, map[string]any{
		"action":     MemoryActionWrite,
		"content":    "project deadline is Friday",
		"importance": float64(5),
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	id := result.Data.(map[string]any)["id"].(string)

	// A content-only update must not touch the stored importance.
	result, err = tool.Execute(ctx, map[string]any{
		"action": MemoryActionUpdate, "id": id, "content": "project deadline is next Friday",
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	item, err := s.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "project deadline is next Friday", item.Content)
	assert.Equal(t, 5, item.Importance)

	// An explicit importance still wins.
	result, err = tool.Execute(ctx, map[string]any{
		"action": MemoryActionUpdate, "id": id, "content": "deadline moved", "importance": float64(2),
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	item, err = s.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Importance)
}

func TestMemoryToolSemanticUnavailable(t *testing.T) {
	s := setupToolStore(t)
	tool := NewMemoryTool(s, nil)

	result, err := tool.Execute(context.Background(), map[string]any{
		"action": MemoryActionSemantic,
		"query":  "theme",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not available")
}

func TestMemoryToolValidation(t *testing.T) {
	tool := NewMemoryTool(nil, nil)

	assert.Error(t, tool.Validate(map[string]any{}))
	assert.Error(t, tool.Validate(map[string]any{"action": "explode"}))
	assert.Error(t, tool.Validate(map[string]any{"action": MemoryActionWrite}))
	assert.Error(t, tool.Validate(map[string]any{"action": MemoryActionWrite, "content": "x", "importance": float64(9)}))
	assert.Error(t, tool.Validate(map[string]any{"action": MemoryActionUpdate, "content": "x"}))
	assert.NoError(t, tool.Validate(map[string]any{"action": MemoryActionStats}))
}

func TestNotesTool(t *testing.T) {
	s := setupToolStore(t)
	tool := NewNotesTool(s)
	ctx := context.Background()

	result, err := tool.Execute(ctx, map[string]any{"action": NotesActionAdd, "text": "buy coffee beans"})
	require.NoError(t, err)
	require.True(t, result.Success)

	result, err = tool.Execute(ctx, map[string]any{"action": NotesActionSearch, "query": "coffee"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "buy coffee beans")

	// Notes live as memory items of type "note".
	items, err := s.QueryMemories(ctx, store.MemoryFilter{Type: "note"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	result, err = tool.Execute(ctx, map[string]any{"action": NotesActionDelete, "id": items[0].ID})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(NewNotesTool(nil))
	r.MustRegister(NewMemoryTool(nil, nil))

	// Duplicate registration is rejected.
	err := r.Register(NewNotesTool(nil))
	require.Error(t, err)

	assert.Equal(t, []string{"memory", "notes"}, r.Names())

	tool, ok := r.Get("notes")
	require.True(t, ok)
	assert.Equal(t, "notes", tool.Name())

	decls := r.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, "memory", decls[0].Name)

	gt := r.GeminiTools()
	require.Len(t, gt, 1)
	assert.Len(t, gt[0].FunctionDeclarations, 2)
}

func TestToolResultToMap(t *testing.T) {
	ok := NewSuccessResultWithData("done", map[string]any{"id": "x"})
	m := ok.ToMap()
	assert.Equal(t, true, m["success"])
	assert.Equal(t, "done", m["content"])

	bad := NewErrorResult("boom")
	m = bad.ToMap()
	assert.Equal(t, false, m["success"])
	assert.Equal(t, "boom", m["error"])
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{"n": float64(7), "s": "x", "b": true}

	n, ok := GetInt(args, "n")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	assert.Equal(t, "x", GetStringDefault(args, "s", "y"))
	assert.Equal(t, "y", GetStringDefault(args, "missing", "y"))
	assert.True(t, GetBoolDefault(args, "b", false))
	assert.Equal(t, 3, GetIntDefault(args, "missing", 3))
}
