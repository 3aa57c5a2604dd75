package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MemoryItem is one durable fact, note, or observation.
type MemoryItem struct {
	ID         string
	Type       string // fact, note, task, observation, ...
	Content    string
	Importance int // 1-5
	Pinned     bool
	Source     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  *time.Time
}

// MemoryFilter narrows memory queries. Zero values mean "no constraint".
type MemoryFilter struct {
	Type          string
	Search        string // substring match on content
	MinImportance int
	PinnedOnly    bool
	Limit         int
}

// SaveMemory persists a new memory item. ID and timestamps are generated
// if unset; importance defaults to 3.
func (s *SQLiteStore) SaveMemory(ctx context.Context, item *MemoryItem) error {
	if item.ID == "" {
		item.ID = NewID("mem")
	}
	if item.Type == "" {
		item.Type = "fact"
	}
	if item.Importance == 0 {
		item.Importance = 3
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_items (id, type, content, importance, pinned, source, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		item.Type,
		item.Content,
		item.Importance,
		boolToInt(item.Pinned),
		nullString(item.Source),
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
		nullTime(item.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("inserting memory item: %w", err)
	}

	s.logger.Debug("saved memory", "id", item.ID, "type", item.Type, "importance", item.Importance)
	return nil
}

// UpdateMemory replaces content and importance of an existing item.
func (s *SQLiteStore) UpdateMemory(ctx context.Context, id, content string, importance int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE memory_items SET content = ?, importance = ?, updated_at = ? WHERE id = ?
	`, content, importance, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating memory item: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// PinMemory sets or clears the pinned flag. Pinned items never expire.
func (s *SQLiteStore) PinMemory(ctx context.Context, id string, pinned bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE memory_items SET pinned = ?, updated_at = ? WHERE id = ?
	`, boolToInt(pinned), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("pinning memory item: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMemory removes an item. The vector row cascades.
func (s *SQLiteStore) DeleteMemory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM memory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting memory item: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted memory", "id", id)
	return nil
}

// GetMemory retrieves an item by ID.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*MemoryItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, content, importance, pinned, source, created_at, updated_at, expires_at
		FROM memory_items WHERE id = ?
	`, id)
	return scanMemoryItem(row)
}

// QueryMemories returns items matching the filter, excluding expired
// unpinned items, ordered by importance then recency.
func (s *SQLiteStore) QueryMemories(ctx context.Context, f MemoryFilter) ([]*MemoryItem, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	now := formatTime(time.Now())
	query := `
		SELECT id, type, content, importance, pinned, source, created_at, updated_at, expires_at
		FROM memory_items
		WHERE (pinned = 1 OR expires_at IS NULL OR expires_at > ?)
	`
	args := []any{now}

	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.Search != "" {
		query += ` AND content LIKE ?`
		args = append(args, "%"+f.Search+"%")
	}
	if f.MinImportance > 0 {
		query += ` AND importance >= ?`
		args = append(args, f.MinImportance)
	}
	if f.PinnedOnly {
		query += ` AND pinned = 1`
	}

	query += ` ORDER BY pinned DESC, importance DESC, updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memory items: %w", err)
	}
	defer rows.Close()

	var items []*MemoryItem
	for rows.Next() {
		item, err := scanMemoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// MemoryStats aggregates counts for the stats dashboard.
type MemoryStats struct {
	Total  int
	Pinned int
	ByType map[string]int
}

// GetMemoryStats aggregates memory counts.
func (s *SQLiteStore) GetMemoryStats(ctx context.Context) (*MemoryStats, error) {
	stats := &MemoryStats{ByType: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT type, pinned, COUNT(*) FROM memory_items GROUP BY type, pinned
	`)
	if err != nil {
		return nil, fmt.Errorf("querying memory stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ string
		var pinned, count int
		if err := rows.Scan(&typ, &pinned, &count); err != nil {
			return nil, fmt.Errorf("scanning memory stats row: %w", err)
		}
		stats.Total += count
		stats.ByType[typ] += count
		if pinned != 0 {
			stats.Pinned += count
		}
	}

	return stats, rows.Err()
}

// CleanupExpiredMemories deletes expired unpinned items and returns the
// number removed.
func (s *SQLiteStore) CleanupExpiredMemories(ctx context.Context) (int, error) {
	now := formatTime(time.Now())
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM memory_items
		WHERE pinned = 0 AND expires_at IS NOT NULL AND expires_at <= ?
	`, now)
	if err != nil {
		return 0, fmt.Errorf("cleaning up expired memories: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		s.logger.Debug("removed expired memories", "count", rows)
	}
	return int(rows), nil
}

func scanMemoryItem(scanner rowScanner) (*MemoryItem, error) {
	var item MemoryItem
	var source, expiresAt sql.NullString
	var pinned int
	var createdAt, updatedAt string

	err := scanner.Scan(&item.ID, &item.Type, &item.Content, &item.Importance, &pinned,
		&source, &createdAt, &updatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning memory item: %w", err)
	}

	item.Pinned = pinned != 0
	item.Source = source.String
	item.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	item.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if expiresAt.Valid {
		t, err := parseTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing expires_at: %w", err)
		}
		item.ExpiresAt = &t
	}

	return &item, nil
}
