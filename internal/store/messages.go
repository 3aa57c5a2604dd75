package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message content kinds.
const (
	KindText = "text"
	KindJSON = "json"
)

// Message is one transcript entry. Immutable once written; strictly ordered
// by creation time within a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Kind           string
	ToolCallID     string // set on tool-call and tool-result messages
	ToolName       string
	ToolInput      string // serialized arguments of the originating call
	CreatedAt      time.Time
}

// AppendMessage persists a message. ID and CreatedAt are generated if unset.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = NewID("msg")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Kind == "" {
		msg.Kind = KindText
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, kind, tool_call_id, tool_name, tool_input, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.Kind,
		nullString(msg.ToolCallID),
		nullString(msg.ToolName),
		nullString(msg.ToolInput),
		formatTime(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("appended message", "id", msg.ID, "conversation", msg.ConversationID, "role", msg.Role)
	return nil
}

// GetConversationMessages retrieves messages for a conversation in creation
// order (oldest first). If limit > 0, only the most recent limit messages are
// returned, still in chronological order.
func (s *SQLiteStore) GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	var query string
	var args []any

	if limit > 0 {
		query = `
			SELECT id, conversation_id, role, content, kind, tool_call_id, tool_name, tool_input, created_at
			FROM (
				SELECT id, conversation_id, role, content, kind, tool_call_id, tool_name, tool_input, created_at, rowid AS rid
				FROM messages
				WHERE conversation_id = ?
				ORDER BY created_at DESC, rid DESC
				LIMIT ?
			)
			ORDER BY created_at ASC, rid ASC
		`
		args = []any{conversationID, limit}
	} else {
		query = `
			SELECT id, conversation_id, role, content, kind, tool_call_id, tool_name, tool_input, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at ASC, rowid ASC
		`
		args = []any{conversationID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var toolCallID, toolName, toolInput sql.NullString
		var createdAt string

		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Kind,
			&toolCallID, &toolName, &toolInput, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.ToolCallID = toolCallID.String
		msg.ToolName = toolName.String
		msg.ToolInput = toolInput.String
		msg.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}

		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// RecentUserMessages returns the last n user-role messages of a conversation,
// oldest first. Used to build semantic recall queries.
func (s *SQLiteStore) RecentUserMessages(ctx context.Context, conversationID string, n int) ([]*Message, error) {
	if n <= 0 {
		n = 3
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, kind, created_at
		FROM (
			SELECT id, conversation_id, role, content, kind, created_at, rowid AS rid
			FROM messages
			WHERE conversation_id = ? AND role = 'user'
			ORDER BY created_at DESC, rid DESC
			LIMIT ?
		)
		ORDER BY created_at ASC
	`, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("querying user messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var createdAt string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Kind, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msg.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
