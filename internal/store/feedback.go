package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Feedback is an append-only rating, optionally linked to a conversation,
// message, or tool run. Consumed by analytics only, never by the
// orchestrator.
type Feedback struct {
	ID             string
	ConversationID string
	MessageID      string
	ToolRunID      string
	Rating         int // 1-5
	Label          string
	Correction     string
	CreatedAt      time.Time
}

// AddFeedback records a rating.
func (s *SQLiteStore) AddFeedback(ctx context.Context, fb *Feedback) error {
	if fb.Rating < 1 || fb.Rating > 5 {
		return fmt.Errorf("rating must be 1-5, got %d", fb.Rating)
	}
	if fb.ID == "" {
		fb.ID = NewID("fb")
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, conversation_id, message_id, tool_run_id, rating, label, correction, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fb.ID,
		nullString(fb.ConversationID),
		nullString(fb.MessageID),
		nullString(fb.ToolRunID),
		fb.Rating,
		nullString(fb.Label),
		nullString(fb.Correction),
		formatTime(fb.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}

	s.logger.Debug("added feedback", "id", fb.ID, "rating", fb.Rating)
	return nil
}

// FeedbackStats aggregates ratings for the stats dashboard.
type FeedbackStats struct {
	Count     int
	AvgRating float64
	LowRated  int // ratings <= 2
}

// GetFeedbackStats aggregates all recorded feedback.
func (s *SQLiteStore) GetFeedbackStats(ctx context.Context) (*FeedbackStats, error) {
	stats := &FeedbackStats{}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(rating), 0),
		       COALESCE(SUM(CASE WHEN rating <= 2 THEN 1 ELSE 0 END), 0)
		FROM feedback
	`)
	if err := row.Scan(&stats.Count, &stats.AvgRating, &stats.LowRated); err != nil {
		return nil, fmt.Errorf("querying feedback stats: %w", err)
	}

	return stats, nil
}

// RecentCorrections returns the latest feedback entries that carry
// correction text, newest first.
func (s *SQLiteStore) RecentCorrections(ctx context.Context, limit int) ([]*Feedback, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, message_id, tool_run_id, rating, label, correction, created_at
		FROM feedback
		WHERE correction IS NOT NULL AND correction != ''
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying corrections: %w", err)
	}
	defer rows.Close()

	var items []*Feedback
	for rows.Next() {
		var fb Feedback
		var convID, msgID, runID, label, correction sql.NullString
		var createdAt string

		if err := rows.Scan(&fb.ID, &convID, &msgID, &runID, &fb.Rating, &label, &correction, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning feedback row: %w", err)
		}

		fb.ConversationID = convID.String
		fb.MessageID = msgID.String
		fb.ToolRunID = runID.String
		fb.Label = label.String
		fb.Correction = correction.String
		fb.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		items = append(items, &fb)
	}

	return items, rows.Err()
}
