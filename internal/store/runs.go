package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Tool run statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// ToolRun is one audit row per attempted execution. Created in running
// state; exactly one finalizing transition to success or failed.
type ToolRun struct {
	ID             string
	ConversationID string
	MessageID      string
	ToolID         string
	Status         string
	Input          string
	Output         string
	Error          string
	DurationMs     int64
	StartedAt      time.Time
	FinishedAt     *time.Time
}

// BeginToolRun creates a running audit row and returns it.
func (s *SQLiteStore) BeginToolRun(ctx context.Context, conversationID, toolID, input string) (*ToolRun, error) {
	run := &ToolRun{
		ID:             NewID("tr"),
		ConversationID: conversationID,
		ToolID:         toolID,
		Status:         RunStatusRunning,
		Input:          input,
		StartedAt:      time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_runs (id, conversation_id, tool_id, status, input, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.ConversationID, run.ToolID, run.Status, nullString(run.Input), formatTime(run.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting tool run: %w", err)
	}

	s.logger.Debug("began tool run", "id", run.ID, "tool", toolID)
	return run, nil
}

// FinishToolRun finalizes a run exactly once. A second finish attempt on the
// same run returns ErrNotFound because the row is no longer running.
func (s *SQLiteStore) FinishToolRun(ctx context.Context, runID, status, output, errText string, duration time.Duration) error {
	if status != RunStatusSuccess && status != RunStatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}

	now := formatTime(time.Now())
	result, err := s.db.ExecContext(ctx, `
		UPDATE tool_runs
		SET status = ?, output = ?, error = ?, duration_ms = ?, finished_at = ?
		WHERE id = ? AND status = 'running'
	`, status, nullString(output), nullString(errText), duration.Milliseconds(), now, runID)
	if err != nil {
		return fmt.Errorf("finishing tool run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Debug("finished tool run", "id", runID, "status", status, "duration_ms", duration.Milliseconds())
	return nil
}

// LinkToolRunMessage attaches the persisted tool-call message to a run.
func (s *SQLiteStore) LinkToolRunMessage(ctx context.Context, runID, messageID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tool_runs SET message_id = ? WHERE id = ?
	`, messageID, runID)
	if err != nil {
		return fmt.Errorf("linking tool run message: %w", err)
	}
	return nil
}

// GetToolRun retrieves a run by ID.
func (s *SQLiteStore) GetToolRun(ctx context.Context, id string) (*ToolRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, message_id, tool_id, status, input, output, error, duration_ms, started_at, finished_at
		FROM tool_runs WHERE id = ?
	`, id)
	return scanToolRun(row)
}

// RunRecord is a ToolRun joined with its descriptor name, for display.
type RunRecord struct {
	ToolRun
	ToolName string
}

// RecentToolRuns returns the most recent n runs (any conversation), newest
// first, joined with their tool names.
func (s *SQLiteStore) RecentToolRuns(ctx context.Context, n int) ([]*RunRecord, error) {
	if n <= 0 {
		n = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.conversation_id, r.message_id, r.tool_id, r.status, r.input, r.output, r.error,
		       r.duration_ms, r.started_at, r.finished_at, t.name
		FROM tool_runs r
		JOIN tools t ON t.id = r.tool_id
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent tool runs: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		var rec RunRecord
		var messageID, input, output, errText, finishedAt sql.NullString
		var durationMs sql.NullInt64
		var startedAt string

		if err := rows.Scan(&rec.ID, &rec.ConversationID, &messageID, &rec.ToolID, &rec.Status,
			&input, &output, &errText, &durationMs, &startedAt, &finishedAt, &rec.ToolName); err != nil {
			return nil, fmt.Errorf("scanning tool run row: %w", err)
		}

		rec.MessageID = messageID.String
		rec.Input = input.String
		rec.Output = output.String
		rec.Error = errText.String
		rec.DurationMs = durationMs.Int64
		rec.StartedAt, err = parseTime(startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if finishedAt.Valid {
			t, err := parseTime(finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing finished_at: %w", err)
			}
			rec.FinishedAt = &t
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

// ToolCounts breaks run outcomes down for one tool.
type ToolCounts struct {
	Total     int
	Succeeded int
	Failed    int
}

// ToolRunStats aggregates run counts for analytics.
type ToolRunStats struct {
	Total     int
	Succeeded int
	Failed    int
	Running   int
	ByTool    map[string]ToolCounts
}

// GetToolRunStats aggregates counts across all runs.
func (s *SQLiteStore) GetToolRunStats(ctx context.Context) (*ToolRunStats, error) {
	stats := &ToolRunStats{ByTool: make(map[string]ToolCounts)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, r.status, COUNT(*)
		FROM tool_runs r
		JOIN tools t ON t.id = r.tool_id
		GROUP BY t.name, r.status
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tool run stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, status string
		var count int
		if err := rows.Scan(&name, &status, &count); err != nil {
			return nil, fmt.Errorf("scanning stats row: %w", err)
		}

		stats.Total += count
		counts := stats.ByTool[name]
		counts.Total += count
		switch status {
		case RunStatusSuccess:
			stats.Succeeded += count
			counts.Succeeded += count
		case RunStatusFailed:
			stats.Failed += count
			counts.Failed += count
		case RunStatusRunning:
			stats.Running += count
		}
		stats.ByTool[name] = counts
	}

	return stats, rows.Err()
}

func scanToolRun(scanner rowScanner) (*ToolRun, error) {
	var run ToolRun
	var messageID, input, output, errText, finishedAt sql.NullString
	var durationMs sql.NullInt64
	var startedAt string

	err := scanner.Scan(&run.ID, &run.ConversationID, &messageID, &run.ToolID, &run.Status,
		&input, &output, &errText, &durationMs, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning tool run: %w", err)
	}

	run.MessageID = messageID.String
	run.Input = input.String
	run.Output = output.String
	run.Error = errText.String
	run.DurationMs = durationMs.Int64
	run.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		run.FinishedAt = &t
	}

	return &run, nil
}
