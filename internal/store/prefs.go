package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Preference is one user-level key/value setting, e.g. tone or verbosity.
type Preference struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// SetPreference upserts a preference. Setting an empty value removes it.
func (s *SQLiteStore) SetPreference(ctx context.Context, key, value string) error {
	if value == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("deleting preference: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("setting preference: %w", err)
	}

	s.logger.Debug("set preference", "key", key)
	return nil
}

// GetPreference retrieves one preference value.
func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying preference: %w", err)
	}
	return value, nil
}

// ListPreferences returns all preferences ordered by key.
func (s *SQLiteStore) ListPreferences(ctx context.Context) ([]*Preference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, updated_at FROM preferences ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*Preference
	for rows.Next() {
		var p Preference
		var updatedAt string
		if err := rows.Scan(&p.Key, &p.Value, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning preference row: %w", err)
		}
		p.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		prefs = append(prefs, &p)
	}

	return prefs, rows.Err()
}
