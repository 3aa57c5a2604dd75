package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Risk levels for tool descriptors.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// ToolDescriptor is the governance record for one canonical tool key.
type ToolDescriptor struct {
	ID              string
	Name            string // canonical governance key, e.g. "memory_write"
	Category        string
	Description     string
	Risk            string
	RequiresConfirm bool
	Enabled         bool
}

// EnsureToolDescriptor inserts a descriptor if no descriptor with the same
// name exists, then returns the stored row. Idempotent: concurrent or
// repeated calls for the same name resolve to a single row, so audit
// foreign keys always have a target.
func (s *SQLiteStore) EnsureToolDescriptor(ctx context.Context, d *ToolDescriptor) (*ToolDescriptor, error) {
	if d.ID == "" {
		d.ID = NewID("tool")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO tools (id, name, category, description, risk, requires_confirm, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Name, d.Category, nullString(d.Description), d.Risk, boolToInt(d.RequiresConfirm), boolToInt(d.Enabled))
	if err != nil {
		return nil, fmt.Errorf("inserting tool descriptor: %w", err)
	}

	return s.GetToolDescriptor(ctx, d.Name)
}

// GetToolDescriptor retrieves a descriptor by canonical name.
func (s *SQLiteStore) GetToolDescriptor(ctx context.Context, name string) (*ToolDescriptor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, description, risk, requires_confirm, enabled
		FROM tools WHERE name = ?
	`, name)
	return scanToolDescriptor(row)
}

// ListToolDescriptors returns all descriptors ordered by category and name.
func (s *SQLiteStore) ListToolDescriptors(ctx context.Context) ([]*ToolDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, description, risk, requires_confirm, enabled
		FROM tools
		ORDER BY category, name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tool descriptors: %w", err)
	}
	defer rows.Close()

	var descriptors []*ToolDescriptor
	for rows.Next() {
		d, err := scanToolDescriptor(rows)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}

	return descriptors, rows.Err()
}

// UpdateToolGovernance overrides governance fields of an existing descriptor.
func (s *SQLiteStore) UpdateToolGovernance(ctx context.Context, name string, risk string, requiresConfirm, enabled *bool) error {
	d, err := s.GetToolDescriptor(ctx, name)
	if err != nil {
		return err
	}

	if risk != "" {
		d.Risk = risk
	}
	if requiresConfirm != nil {
		d.RequiresConfirm = *requiresConfirm
	}
	if enabled != nil {
		d.Enabled = *enabled
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE tools SET risk = ?, requires_confirm = ?, enabled = ? WHERE name = ?
	`, d.Risk, boolToInt(d.RequiresConfirm), boolToInt(d.Enabled), name)
	if err != nil {
		return fmt.Errorf("updating tool governance: %w", err)
	}

	s.logger.Debug("updated tool governance", "name", name, "risk", d.Risk, "confirm", d.RequiresConfirm)
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanToolDescriptor(scanner rowScanner) (*ToolDescriptor, error) {
	var d ToolDescriptor
	var description sql.NullString
	var confirm, enabled int

	err := scanner.Scan(&d.ID, &d.Name, &d.Category, &description, &d.Risk, &confirm, &enabled)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning tool descriptor: %w", err)
	}

	d.Description = description.String
	d.RequiresConfirm = confirm != 0
	d.Enabled = enabled != 0
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
