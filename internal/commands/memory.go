package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"aide/internal/store"
)

const memoryListLimit = 15

// MemoryCommand searches memories by keyword.
type MemoryCommand struct{}

func (c *MemoryCommand) Name() string        { return "memory" }
func (c *MemoryCommand) Description() string { return "Search memories by keyword" }
func (c *MemoryCommand) Usage() string       { return "/memory [query]" }

func (c *MemoryCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	query := strings.Join(args, " ")

	items, err := app.GetStore().QueryMemories(ctx, store.MemoryFilter{
		Search: query,
		Limit:  memoryListLimit,
	})
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		if query != "" {
			return "No memories found. Try /recall for semantic search.", nil
		}
		return "No memories found.", nil
	}

	var b strings.Builder
	if query != "" {
		fmt.Fprintf(&b, "Memories matching: %s\n", query)
	} else {
		b.WriteString("Memories\n")
	}
	for _, m := range items {
		pin := "  "
		if m.Pinned {
			pin = "📌"
		}
		stars := strings.Repeat("★", m.Importance)
		fmt.Fprintf(&b, "  %s %s [%s] %s\n", pin, m.ID, m.Type, stars)
		fmt.Fprintf(&b, "     %s\n", clip(m.Content, 80))
	}
	return b.String(), nil
}

// RecallCommand searches memories by semantic similarity, falling back to
// keyword search when the vector index is unavailable.
type RecallCommand struct{}

func (c *RecallCommand) Name() string        { return "recall" }
func (c *RecallCommand) Description() string { return "Search memories by similarity" }
func (c *RecallCommand) Usage() string       { return "/recall <query>" }

func (c *RecallCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	query := strings.Join(args, " ")
	if query == "" {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}

	search := app.GetSearch()
	if search == nil || !search.Available() {
		items, err := app.GetStore().QueryMemories(ctx, store.MemoryFilter{Search: query, Limit: 5})
		if err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString("Semantic search not available. Falling back to keyword search.\n")
		for _, m := range items {
			fmt.Fprintf(&b, "  • %s\n", clip(m.Content, 80))
		}
		return b.String(), nil
	}

	matches, err := search.Search(ctx, query, 5)
	if err != nil {
		return "", fmt.Errorf("semantic search failed: %w", err)
	}
	if len(matches) == 0 {
		return "No semantic matches found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Semantic matches for: %q\n", query)
	for _, m := range matches {
		filled := int(m.Score * 10)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
		fmt.Fprintf(&b, "  %s %.2f  %s\n", bar, m.Score, clip(m.Content, 70))
	}
	return b.String(), nil
}

// RememberCommand quick-stores a memory item.
type RememberCommand struct{}

func (c *RememberCommand) Name() string        { return "remember" }
func (c *RememberCommand) Description() string { return "Quick-store a memory" }
func (c *RememberCommand) Usage() string       { return "/remember <text>" }

func (c *RememberCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	text := strings.Join(args, " ")
	if text == "" {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}

	item := &store.MemoryItem{Content: text, Type: "note", Source: "user"}
	if err := app.GetStore().SaveMemory(ctx, item); err != nil {
		return "", err
	}
	if search := app.GetSearch(); search != nil {
		search.IndexItem(ctx, item)
	}
	return fmt.Sprintf("Stored: %s", item.ID), nil
}

// PinCommand pins a memory so it never expires.
type PinCommand struct{}

func (c *PinCommand) Name() string        { return "pin" }
func (c *PinCommand) Description() string { return "Pin a memory permanently" }
func (c *PinCommand) Usage() string       { return "/pin <memory_id>" }

func (c *PinCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}

	id := args[0]
	err := app.GetStore().PinMemory(ctx, id, true)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Memory %s not found.", id), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Memory %s pinned.", id), nil
}

// ForgetCommand deletes a memory and its embedding.
type ForgetCommand struct{}

func (c *ForgetCommand) Name() string        { return "forget" }
func (c *ForgetCommand) Description() string { return "Delete a memory" }
func (c *ForgetCommand) Usage() string       { return "/forget <memory_id>" }

func (c *ForgetCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}

	id := args[0]
	err := app.GetStore().DeleteMemory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Memory %s not found.", id), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Memory %s deleted.", id), nil
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
