// Package trainer aggregates feedback and usage analytics. It reads the
// durable record (tool runs, ratings, memories, skills) and produces the
// stats dashboard plus improvement suggestions; it never feeds back into
// the orchestrator loop.
package trainer

import (
	"context"
	"fmt"

	"aide/internal/semantic"
	"aide/internal/store"
)

const (
	topSkillLimit = 5

	// Thresholds for improvement suggestions.
	minFeedbackForTrend = 5
	lowAvgRating        = 3.0
	toolFailureRate     = 0.3
	minRunsForTrend     = 3
)

// Stats is a point-in-time snapshot across the whole store.
type Stats struct {
	Runs              *store.ToolRunStats
	Feedback          *store.FeedbackStats
	Memory            *store.MemoryStats
	TopSkills         []*store.Skill
	VectorCount       int
	SemanticAvailable bool
}

// Trainer computes analytics over the store.
type Trainer struct {
	store  *store.SQLiteStore
	search *semantic.Index // nil when semantic search is disabled
}

// New creates a Trainer. search may be nil.
func New(s *store.SQLiteStore, search *semantic.Index) *Trainer {
	return &Trainer{store: s, search: search}
}

// Stats gathers the dashboard snapshot.
func (t *Trainer) Stats(ctx context.Context) (*Stats, error) {
	runs, err := t.store.GetToolRunStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("gathering tool run stats: %w", err)
	}
	feedback, err := t.store.GetFeedbackStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("gathering feedback stats: %w", err)
	}
	memory, err := t.store.GetMemoryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("gathering memory stats: %w", err)
	}
	skills, err := t.store.ListSkills(ctx, topSkillLimit)
	if err != nil {
		return nil, fmt.Errorf("gathering skills: %w", err)
	}
	vectors, err := t.store.CountVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting vectors: %w", err)
	}

	return &Stats{
		Runs:              runs,
		Feedback:          feedback,
		Memory:            memory,
		TopSkills:         skills,
		VectorCount:       vectors,
		SemanticAvailable: t.search != nil && t.search.Available(),
	}, nil
}

// Improvements derives actionable suggestions from ratings and tool
// failure rates. An empty store yields the all-clear message.
func (t *Trainer) Improvements(ctx context.Context) ([]string, error) {
	feedback, err := t.store.GetFeedbackStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("gathering feedback stats: %w", err)
	}
	runs, err := t.store.GetToolRunStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("gathering tool run stats: %w", err)
	}

	var suggestions []string

	if feedback.Count > minFeedbackForTrend && feedback.AvgRating < lowAvgRating {
		suggestions = append(suggestions, fmt.Sprintf(
			"Average rating is %.1f/5 over %d ratings. Review recent corrections.",
			feedback.AvgRating, feedback.Count))
	}

	for name, counts := range runs.ByTool {
		finished := counts.Succeeded + counts.Failed
		if finished < minRunsForTrend {
			continue
		}
		failRate := float64(counts.Failed) / float64(finished)
		if failRate > toolFailureRate {
			suggestions = append(suggestions, fmt.Sprintf(
				"Tool %q fails %.0f%% of the time (%d/%d). Check its configuration.",
				name, failRate*100, counts.Failed, finished))
		}
	}

	corrections, err := t.store.RecentCorrections(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("gathering corrections: %w", err)
	}
	for _, c := range corrections {
		suggestions = append(suggestions, "Correction to apply: "+c.Correction)
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, "No issues detected.")
	}
	return suggestions, nil
}
