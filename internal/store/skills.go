package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Skill tracks a named capability the assistant has exercised, with rough
// usage and success counters.
type Skill struct {
	ID          string
	Name        string
	Description string
	Uses        int
	Successes   int
	CreatedAt   time.Time
	LastUsedAt  *time.Time
}

// EnsureSkill inserts a skill if no skill with the same name exists, then
// returns the stored row.
func (s *SQLiteStore) EnsureSkill(ctx context.Context, name, description string) (*Skill, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO skills (id, name, description, uses, successes, created_at)
		VALUES (?, ?, ?, 0, 0, ?)
	`, NewID("skill"), name, nullString(description), formatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("inserting skill: %w", err)
	}
	return s.GetSkill(ctx, name)
}

// GetSkill retrieves a skill by name.
func (s *SQLiteStore) GetSkill(ctx context.Context, name string) (*Skill, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, uses, successes, created_at, last_used_at
		FROM skills WHERE name = ?
	`, name)
	return scanSkill(row)
}

// RecordSkillUse bumps the usage counters for a skill, creating it on first
// use.
func (s *SQLiteStore) RecordSkillUse(ctx context.Context, name string, success bool) error {
	if _, err := s.EnsureSkill(ctx, name, ""); err != nil {
		return err
	}

	successInc := 0
	if success {
		successInc = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE skills SET uses = uses + 1, successes = successes + ?, last_used_at = ? WHERE name = ?
	`, successInc, formatTime(time.Now()), name)
	if err != nil {
		return fmt.Errorf("recording skill use: %w", err)
	}
	return nil
}

// ListSkills returns skills ordered by usage, most used first.
func (s *SQLiteStore) ListSkills(ctx context.Context, limit int) ([]*Skill, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, uses, successes, created_at, last_used_at
		FROM skills
		ORDER BY uses DESC, name
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying skills: %w", err)
	}
	defer rows.Close()

	var skills []*Skill
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		skills = append(skills, sk)
	}

	return skills, rows.Err()
}

func scanSkill(scanner rowScanner) (*Skill, error) {
	var sk Skill
	var description, lastUsedAt sql.NullString
	var createdAt string

	err := scanner.Scan(&sk.ID, &sk.Name, &description, &sk.Uses, &sk.Successes, &createdAt, &lastUsedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning skill: %w", err)
	}

	sk.Description = description.String
	sk.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if lastUsedAt.Valid {
		t, err := parseTime(lastUsedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_used_at: %w", err)
		}
		sk.LastUsedAt = &t
	}

	return &sk, nil
}
