package tools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"aide/internal/store"
)

// Notes tool actions.
const (
	NotesActionAdd    = "add"
	NotesActionList   = "list"
	NotesActionSearch = "search"
	NotesActionDelete = "delete"
)

// NotesTool is a quick-capture surface over memory items of type "note".
type NotesTool struct {
	store *store.SQLiteStore
}

// NewNotesTool creates a notes tool over the store.
func NewNotesTool(s *store.SQLiteStore) *NotesTool {
	return &NotesTool{store: s}
}

func (t *NotesTool) Name() string {
	return "notes"
}

func (t *NotesTool) Description() string {
	return "Quick notes: add, list, search, delete short free-form notes"
}

func (t *NotesTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"action": {
					Type:        genai.TypeString,
					Description: "Action to perform",
					Enum:        []string{NotesActionAdd, NotesActionList, NotesActionSearch, NotesActionDelete},
				},
				"text": {
					Type:        genai.TypeString,
					Description: "Note text (for add)",
				},
				"query": {
					Type:        genai.TypeString,
					Description: "Search text (for search)",
				},
				"id": {
					Type:        genai.TypeString,
					Description: "Note ID (for delete)",
				},
				"limit": {
					Type:        genai.TypeInteger,
					Description: "Maximum results (list, search). Default: 10",
				},
			},
			Required: []string{"action"},
		},
	}
}

func (t *NotesTool) Validate(args map[string]any) error {
	action, ok := GetString(args, "action")
	if !ok {
		return NewValidationError("action", "action is required")
	}

	switch action {
	case NotesActionAdd:
		if text, ok := GetString(args, "text"); !ok || strings.TrimSpace(text) == "" {
			return NewValidationError("text", "text is required for add")
		}
	case NotesActionSearch:
		if q, ok := GetString(args, "query"); !ok || q == "" {
			return NewValidationError("query", "query is required for search")
		}
	case NotesActionDelete:
		if _, ok := GetString(args, "id"); !ok {
			return NewValidationError("id", "id is required for delete")
		}
	case NotesActionList:
		// No required parameters.
	default:
		return NewValidationError("action", "invalid action: "+action)
	}

	return nil
}

func (t *NotesTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	if err := t.Validate(args); err != nil {
		return NewErrorResult(err.Error()), nil
	}

	action, _ := GetString(args, "action")
	switch action {
	case NotesActionAdd:
		text, _ := GetString(args, "text")
		item := &store.MemoryItem{Type: "note", Content: strings.TrimSpace(text), Source: "notes"}
		if err := t.store.SaveMemory(ctx, item); err != nil {
			return ToolResult{}, err
		}
		return NewSuccessResultWithData("Noted ("+item.ID+")", map[string]any{"id": item.ID}), nil

	case NotesActionList, NotesActionSearch:
		filter := store.MemoryFilter{
			Type:  "note",
			Limit: GetIntDefault(args, "limit", 10),
		}
		if action == NotesActionSearch {
			filter.Search, _ = GetString(args, "query")
		}

		items, err := t.store.QueryMemories(ctx, filter)
		if err != nil {
			return ToolResult{}, err
		}
		if len(items) == 0 {
			return NewSuccessResult("No notes found."), nil
		}

		var sb strings.Builder
		for _, item := range items {
			fmt.Fprintf(&sb, "%s: %s\n", item.ID, item.Content)
		}
		return NewSuccessResult(sb.String()), nil

	case NotesActionDelete:
		id, _ := GetString(args, "id")
		if err := t.store.DeleteMemory(ctx, id); err != nil {
			if err == store.ErrNotFound {
				return NewErrorResult("no note with id " + id), nil
			}
			return ToolResult{}, err
		}
		return NewSuccessResult("Deleted " + id), nil

	default:
		return NewErrorResult("invalid action: " + action), nil
	}
}
