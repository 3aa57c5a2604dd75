package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RateCommand records feedback for the last answer.
type RateCommand struct{}

func (c *RateCommand) Name() string        { return "rate" }
func (c *RateCommand) Description() string { return "Rate the last response" }
func (c *RateCommand) Usage() string       { return "/rate <1-5> [label] [correction]" }

func (c *RateCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}

	rating, err := strconv.Atoi(args[0])
	if err != nil || rating < 1 || rating > 5 {
		return "", fmt.Errorf("rating must be 1-5")
	}

	var label, correction string
	if len(args) > 1 {
		label = args[1]
	}
	if len(args) > 2 {
		correction = strings.Join(args[2:], " ")
	}

	if err := app.GetBrain().RateLast(ctx, rating, label, correction); err != nil {
		return "", err
	}
	return fmt.Sprintf("Feedback recorded: %s", strings.Repeat("⭐", rating)), nil
}

// StatsCommand prints the performance dashboard.
type StatsCommand struct{}

func (c *StatsCommand) Name() string        { return "stats" }
func (c *StatsCommand) Description() string { return "Performance dashboard" }
func (c *StatsCommand) Usage() string       { return "/stats" }

func (c *StatsCommand) Execute(ctx context.Context, _ []string, app AppInterface) (string, error) {
	stats, err := app.GetTrainer().Stats(ctx)
	if err != nil {
		return "", err
	}

	successRate := 0.0
	finished := stats.Runs.Succeeded + stats.Runs.Failed
	if finished > 0 {
		successRate = float64(stats.Runs.Succeeded) / float64(finished) * 100
	}

	var b strings.Builder
	b.WriteString("Dashboard\n")
	fmt.Fprintf(&b, "  Tool runs:    %d\n", stats.Runs.Total)
	fmt.Fprintf(&b, "  Success rate: %.0f%%\n", successRate)
	fmt.Fprintf(&b, "  Avg rating:   %.1f/5 (%d ratings)\n", stats.Feedback.AvgRating, stats.Feedback.Count)
	fmt.Fprintf(&b, "  Memories:     %d (%d pinned)\n", stats.Memory.Total, stats.Memory.Pinned)
	fmt.Fprintf(&b, "  Skills:       %d\n", len(stats.TopSkills))
	if stats.SemanticAvailable {
		fmt.Fprintf(&b, "  Vectors:      ✓ active (%d indexed)\n", stats.VectorCount)
	} else {
		b.WriteString("  Vectors:      ○ not configured\n")
	}

	if len(stats.Runs.ByTool) > 0 {
		b.WriteString("\n  Tool breakdown:\n")
		names := make([]string, 0, len(stats.Runs.ByTool))
		for name := range stats.Runs.ByTool {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			counts := stats.Runs.ByTool[name]
			rate := 0.0
			if counts.Total > 0 {
				rate = float64(counts.Succeeded) / float64(counts.Total) * 100
			}
			fmt.Fprintf(&b, "    %s: %d runs (%.0f%% success)\n", name, counts.Total, rate)
		}
	}

	if len(stats.Memory.ByType) > 0 {
		b.WriteString("\n  Memory types:\n")
		types := make([]string, 0, len(stats.Memory.ByType))
		for t := range stats.Memory.ByType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&b, "    %s: %d\n", t, stats.Memory.ByType[t])
		}
	}

	if len(stats.TopSkills) > 0 {
		b.WriteString("\n  Top skills:\n")
		for _, sk := range stats.TopSkills {
			fmt.Fprintf(&b, "    %s (used %dx, %d succeeded)\n", sk.Name, sk.Uses, sk.Successes)
		}
	}

	return b.String(), nil
}

// ImproveCommand prints improvement suggestions.
type ImproveCommand struct{}

func (c *ImproveCommand) Name() string        { return "improve" }
func (c *ImproveCommand) Description() string { return "Show improvement suggestions" }
func (c *ImproveCommand) Usage() string       { return "/improve" }

func (c *ImproveCommand) Execute(ctx context.Context, _ []string, app AppInterface) (string, error) {
	suggestions, err := app.GetTrainer().Improvements(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Improvement suggestions\n")
	for _, s := range suggestions {
		fmt.Fprintf(&b, "  → %s\n", s)
	}
	return b.String(), nil
}
