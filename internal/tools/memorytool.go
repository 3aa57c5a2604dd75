package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"aide/internal/semantic"
	"aide/internal/store"
)

// Memory tool actions.
const (
	MemoryActionWrite    = "write"
	MemoryActionQuery    = "query"
	MemoryActionSemantic = "semantic"
	MemoryActionPin      = "pin"
	MemoryActionUpdate   = "update"
	MemoryActionDelete   = "delete"
	MemoryActionStats    = "stats"
)

// MemoryTool exposes the durable memory store to the model: saving facts,
// querying them, pinning, and semantic recall when an index is available.
type MemoryTool struct {
	store  *store.SQLiteStore
	search *semantic.Index // nil when semantic search is disabled
}

// NewMemoryTool creates a memory tool. The semantic index may be nil.
func NewMemoryTool(s *store.SQLiteStore, search *semantic.Index) *MemoryTool {
	return &MemoryTool{store: s, search: search}
}

func (t *MemoryTool) Name() string {
	return "memory"
}

func (t *MemoryTool) Description() string {
	return "Persistent memory: save facts and notes, query or semantically recall them, pin, update, delete"
}

func (t *MemoryTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"action": {
					Type:        genai.TypeString,
					Description: "Action to perform",
					Enum: []string{
						MemoryActionWrite, MemoryActionQuery, MemoryActionSemantic,
						MemoryActionPin, MemoryActionUpdate, MemoryActionDelete, MemoryActionStats,
					},
				},
				"content": {
					Type:        genai.TypeString,
					Description: "Content to save (write) or new content (update)",
				},
				"type": {
					Type:        genai.TypeString,
					Description: "Item type: fact, note, task, observation. Default: fact",
				},
				"importance": {
					Type:        genai.TypeInteger,
					Description: "Importance 1-5. Default: 3",
				},
				"expires_in_hours": {
					Type:        genai.TypeInteger,
					Description: "Optional time-to-live in hours (write only)",
				},
				"query": {
					Type:        genai.TypeString,
					Description: "Search text (query, semantic)",
				},
				"id": {
					Type:        genai.TypeString,
					Description: "Memory ID (pin, update, delete)",
				},
				"pinned": {
					Type:        genai.TypeBoolean,
					Description: "Pin state (pin). Default: true",
				},
				"limit": {
					Type:        genai.TypeInteger,
					Description: "Maximum results (query, semantic)",
				},
			},
			Required: []string{"action"},
		},
	}
}

func (t *MemoryTool) Validate(args map[string]any) error {
	action, ok := GetString(args, "action")
	if !ok {
		return NewValidationError("action", "action is required")
	}

	switch action {
	case MemoryActionWrite:
		if c, ok := GetString(args, "content"); !ok || c == "" {
			return NewValidationError("content", "content is required for write")
		}
		if imp, ok := GetInt(args, "importance"); ok && (imp < 1 || imp > 5) {
			return NewValidationError("importance", "importance must be 1-5")
		}
	case MemoryActionUpdate:
		if _, ok := GetString(args, "id"); !ok {
			return NewValidationError("id", "id is required for update")
		}
		if c, ok := GetString(args, "content"); !ok || c == "" {
			return NewValidationError("content", "content is required for update")
		}
		if imp, ok := GetInt(args, "importance"); ok && (imp < 1 || imp > 5) {
			return NewValidationError("importance", "importance must be 1-5")
		}
	case MemoryActionPin, MemoryActionDelete:
		if _, ok := GetString(args, "id"); !ok {
			return NewValidationError("id", "id is required for "+action)
		}
	case MemoryActionSemantic:
		if q, ok := GetString(args, "query"); !ok || q == "" {
			return NewValidationError("query", "query is required for semantic")
		}
	case MemoryActionQuery, MemoryActionStats:
		// No required parameters.
	default:
		return NewValidationError("action", "invalid action: "+action)
	}

	return nil
}

func (t *MemoryTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	if err := t.Validate(args); err != nil {
		return NewErrorResult(err.Error()), nil
	}

	action, _ := GetString(args, "action")
	switch action {
	case MemoryActionWrite:
		return t.write(ctx, args)
	case MemoryActionQuery:
		return t.query(ctx, args)
	case MemoryActionSemantic:
		return t.semanticRecall(ctx, args)
	case MemoryActionPin:
		return t.pin(ctx, args)
	case MemoryActionUpdate:
		return t.update(ctx, args)
	case MemoryActionDelete:
		return t.delete(ctx, args)
	case MemoryActionStats:
		return t.stats(ctx)
	default:
		return NewErrorResult("invalid action: " + action), nil
	}
}

func (t *MemoryTool) write(ctx context.Context, args map[string]any) (ToolResult, error) {
	item := &store.MemoryItem{
		Type:       GetStringDefault(args, "type", "fact"),
		Content:    strings.TrimSpace(mustString(args, "content")),
		Importance: GetIntDefault(args, "importance", 3),
		Source:     "assistant",
	}
	if hours, ok := GetInt(args, "expires_in_hours"); ok && hours > 0 {
		exp := time.Now().Add(time.Duration(hours) * time.Hour)
		item.ExpiresAt = &exp
	}

	if err := t.store.SaveMemory(ctx, item); err != nil {
		return ToolResult{}, err
	}

	if t.search != nil {
		t.search.IndexItem(ctx, item)
	}

	return NewSuccessResultWithData("Saved memory "+item.ID, map[string]any{"id": item.ID}), nil
}

func (t *MemoryTool) query(ctx context.Context, args map[string]any) (ToolResult, error) {
	filter := store.MemoryFilter{
		Type:   GetStringDefault(args, "type", ""),
		Search: GetStringDefault(args, "query", ""),
		Limit:  GetIntDefault(args, "limit", 10),
	}

	items, err := t.store.QueryMemories(ctx, filter)
	if err != nil {
		return ToolResult{}, err
	}
	if len(items) == 0 {
		return NewSuccessResult("No matching memories."), nil
	}

	var sb strings.Builder
	for _, item := range items {
		pin := ""
		if item.Pinned {
			pin = " [pinned]"
		}
		fmt.Fprintf(&sb, "%s (%s, importance %d)%s: %s\n", item.ID, item.Type, item.Importance, pin, item.Content)
	}
	return NewSuccessResult(sb.String()), nil
}

func (t *MemoryTool) semanticRecall(ctx context.Context, args map[string]any) (ToolResult, error) {
	if t.search == nil || !t.search.Available() {
		return NewErrorResult("semantic search is not available"), nil
	}

	query, _ := GetString(args, "query")
	topK := GetIntDefault(args, "limit", 3)

	matches, err := t.search.Search(ctx, query, topK)
	if err != nil {
		return NewErrorResult("semantic search failed: " + err.Error()), nil
	}
	if len(matches) == 0 {
		return NewSuccessResult("No semantically similar memories."), nil
	}

	var sb strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&sb, "%s (score %.2f): %s\n", m.MemoryID, m.Score, m.Content)
	}
	return NewSuccessResult(sb.String()), nil
}

func (t *MemoryTool) pin(ctx context.Context, args map[string]any) (ToolResult, error) {
	id, _ := GetString(args, "id")
	pinned := GetBoolDefault(args, "pinned", true)

	if err := t.store.PinMemory(ctx, id, pinned); err != nil {
		if err == store.ErrNotFound {
			return NewErrorResult("no memory with id " + id), nil
		}
		return ToolResult{}, err
	}

	verb := "Pinned"
	if !pinned {
		verb = "Unpinned"
	}
	return NewSuccessResult(verb + " " + id), nil
}

func (t *MemoryTool) update(ctx context.Context, args map[string]any) (ToolResult, error) {
	id, _ := GetString(args, "id")
	content, _ := GetString(args, "content")

	current, err := t.store.GetMemory(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return NewErrorResult("no memory with id " + id), nil
		}
		return ToolResult{}, err
	}

	// Importance changes only when the call supplies it.
	importance := current.Importance
	if imp, ok := GetInt(args, "importance"); ok {
		importance = imp
	}

	if err := t.store.UpdateMemory(ctx, id, content, importance); err != nil {
		if err == store.ErrNotFound {
			return NewErrorResult("no memory with id " + id), nil
		}
		return ToolResult{}, err
	}

	if t.search != nil {
		t.search.IndexItem(ctx, &store.MemoryItem{ID: id, Content: content})
	}

	return NewSuccessResult("Updated " + id), nil
}

func (t *MemoryTool) delete(ctx context.Context, args map[string]any) (ToolResult, error) {
	id, _ := GetString(args, "id")

	if err := t.store.DeleteMemory(ctx, id); err != nil {
		if err == store.ErrNotFound {
			return NewErrorResult("no memory with id " + id), nil
		}
		return ToolResult{}, err
	}
	return NewSuccessResult("Deleted " + id), nil
}

func (t *MemoryTool) stats(ctx context.Context) (ToolResult, error) {
	stats, err := t.store.GetMemoryStats(ctx)
	if err != nil {
		return ToolResult{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Memories: %d total, %d pinned\n", stats.Total, stats.Pinned)
	for typ, count := range stats.ByType {
		fmt.Fprintf(&sb, "- %s: %d\n", typ, count)
	}
	return NewSuccessResultWithData(sb.String(), stats), nil
}

func mustString(args map[string]any, key string) string {
	s, _ := GetString(args, key)
	return s
}
