package memory

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"aide/internal/logging"
	"aide/internal/semantic"
	"aide/internal/store"
)

// Assembly limits.
const (
	keyMemoryMinImportance = 4
	keyMemoryLimit         = 10
	recentRunLimit         = 5
	skillLimit             = 5
	semanticQueryMaxChars  = 500
	semanticTopK           = 3
	semanticSnippetChars   = 200
)

// Assembler builds the instruction context handed to the model from durable
// state. Every section is deterministic; the semantic excerpt is best effort
// and degrades to nothing when the index is unavailable.
type Assembler struct {
	store  *store.SQLiteStore
	search *semantic.Index // nil when semantic search is disabled
}

// NewAssembler creates an assembler over the store. The index may be nil.
func NewAssembler(s *store.SQLiteStore, search *semantic.Index) *Assembler {
	return &Assembler{store: s, search: search}
}

// Build renders the memory context appended to the base system prompt.
// recentUserTurns are the latest user messages, oldest first, used to seed
// the semantic lookup.
func (a *Assembler) Build(ctx context.Context, recentUserTurns []string) (string, error) {
	var sections []string

	prefs, err := a.preferencesSection(ctx)
	if err != nil {
		return "", err
	}
	if prefs != "" {
		sections = append(sections, prefs)
	}

	memories, err := a.keyMemoriesSection(ctx)
	if err != nil {
		return "", err
	}
	if memories != "" {
		sections = append(sections, memories)
	}

	activity, err := a.toolActivitySection(ctx)
	if err != nil {
		return "", err
	}
	if activity != "" {
		sections = append(sections, activity)
	}

	skills, err := a.skillsSection(ctx)
	if err != nil {
		return "", err
	}
	if skills != "" {
		sections = append(sections, skills)
	}

	if excerpt := a.semanticSection(ctx, recentUserTurns); excerpt != "" {
		sections = append(sections, excerpt)
	}

	if len(sections) == 0 {
		return "No memory context yet.", nil
	}
	return strings.Join(sections, "\n\n"), nil
}

func (a *Assembler) preferencesSection(ctx context.Context) (string, error) {
	prefs, err := a.store.ListPreferences(ctx)
	if err != nil {
		return "", fmt.Errorf("loading preferences: %w", err)
	}
	if len(prefs) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## User Preferences\n")
	for _, p := range prefs {
		fmt.Fprintf(&sb, "- %s: %s\n", p.Key, p.Value)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (a *Assembler) keyMemoriesSection(ctx context.Context) (string, error) {
	items, err := a.store.QueryMemories(ctx, store.MemoryFilter{
		MinImportance: keyMemoryMinImportance,
		Limit:         keyMemoryLimit,
	})
	if err != nil {
		return "", fmt.Errorf("loading key memories: %w", err)
	}
	if len(items) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Key Memories\n")
	for _, item := range items {
		marker := ""
		if item.Pinned {
			marker = " [pinned]"
		}
		fmt.Fprintf(&sb, "- (%s, importance %d)%s %s\n", item.Type, item.Importance, marker, item.Content)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (a *Assembler) toolActivitySection(ctx context.Context) (string, error) {
	runs, err := a.store.RecentToolRuns(ctx, recentRunLimit)
	if err != nil {
		return "", fmt.Errorf("loading recent tool runs: %w", err)
	}
	if len(runs) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Recent Tool Activity\n")
	for _, run := range runs {
		mark := "✓"
		if run.Status != store.RunStatusSuccess {
			mark = "✗"
		}
		line := run.Output
		if run.Status == store.RunStatusFailed && run.Error != "" {
			line = run.Error
		}
		fmt.Fprintf(&sb, "- %s %s: %s\n", mark, run.ToolName, firstLine(line))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (a *Assembler) skillsSection(ctx context.Context) (string, error) {
	skills, err := a.store.ListSkills(ctx, skillLimit)
	if err != nil {
		return "", fmt.Errorf("loading skills: %w", err)
	}
	if len(skills) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Learned Skills\n")
	for _, sk := range skills {
		fmt.Fprintf(&sb, "- %s: used %d times, %d succeeded\n", sk.Name, sk.Uses, sk.Successes)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// semanticSection never returns an error: a broken or absent index yields
// an empty section, not a failed turn.
func (a *Assembler) semanticSection(ctx context.Context, recentUserTurns []string) string {
	if a.search == nil || !a.search.Available() || len(recentUserTurns) == 0 {
		return ""
	}

	query := clip(strings.Join(recentUserTurns, " "), semanticQueryMaxChars)

	matches, err := a.search.Search(ctx, query, semanticTopK)
	if err != nil {
		logging.Warn("semantic context lookup failed", "error", err)
		return ""
	}
	if len(matches) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Related Memories\n")
	for _, m := range matches {
		snippet := m.Content
		if len(snippet) > semanticSnippetChars {
			snippet = clip(snippet, semanticSnippetChars) + "..."
		}
		fmt.Fprintf(&sb, "- (%.2f) %s\n", m.Score, snippet)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = clip(s, 120) + "..."
	}
	if s == "" {
		s = "(no output)"
	}
	return s
}

// clip truncates s to at most max bytes, backing up to a rune boundary so
// a multi-byte character is never split.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
