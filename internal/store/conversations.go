package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Conversation is one session of user/assistant exchange. Created when a
// session begins; mutated only by closing; never deleted.
type Conversation struct {
	ID        string
	User      string
	Title     string
	StartedAt time.Time
	EndedAt   *time.Time
}

// ConversationSummary is a Conversation plus its message count, for listings.
type ConversationSummary struct {
	Conversation
	MessageCount int
}

// CreateConversation starts a new conversation for the given user.
func (s *SQLiteStore) CreateConversation(ctx context.Context, user, title string) (*Conversation, error) {
	conv := &Conversation{
		ID:        NewID("conv"),
		User:      user,
		Title:     title,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user, title, started_at)
		VALUES (?, ?, ?, ?)
	`, conv.ID, conv.User, nullString(conv.Title), formatTime(conv.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID, "user", user)
	return conv, nil
}

// EndConversation sets the end timestamp. Ending an already-ended
// conversation is a no-op.
func (s *SQLiteStore) EndConversation(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET ended_at = ? WHERE id = ? AND ended_at IS NULL
	`, now, id)
	if err != nil {
		return fmt.Errorf("ending conversation: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		s.logger.Debug("ended conversation", "id", id)
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user, title, started_at, ended_at
		FROM conversations WHERE id = ?
	`, id)

	var conv Conversation
	var title, endedAt sql.NullString
	var startedAt string

	err := row.Scan(&conv.ID, &conv.User, &title, &startedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	conv.Title = title.String
	conv.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if endedAt.Valid {
		t, err := parseTime(endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing ended_at: %w", err)
		}
		conv.EndedAt = &t
	}

	return &conv, nil
}

// ListConversations returns recent conversations with message counts,
// newest first.
func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]*ConversationSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user, c.title, c.started_at, c.ended_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		ORDER BY c.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*ConversationSummary
	for rows.Next() {
		var cs ConversationSummary
		var title, endedAt sql.NullString
		var startedAt string

		if err := rows.Scan(&cs.ID, &cs.User, &title, &startedAt, &endedAt, &cs.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}

		cs.Title = title.String
		cs.StartedAt, err = parseTime(startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if endedAt.Valid {
			t, err := parseTime(endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing ended_at: %w", err)
			}
			cs.EndedAt = &t
		}

		convs = append(convs, &cs)
	}

	return convs, rows.Err()
}
