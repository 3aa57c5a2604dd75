package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Approval decisions.
const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionDenied   = "denied"
)

// Approval records one gated request and its resolution. The tool run
// reference is nullable: denied calls never produce a run.
type Approval struct {
	ID        string
	ToolRunID string
	User      string
	Prompt    string
	Decision  string
	Response  string
	CreatedAt time.Time
	DecidedAt *time.Time
}

// CreateApproval records a pending approval request.
func (s *SQLiteStore) CreateApproval(ctx context.Context, user, prompt string) (*Approval, error) {
	appr := &Approval{
		ID:        NewID("appr"),
		User:      user,
		Prompt:    prompt,
		Decision:  DecisionPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approvals (id, user, prompt, decision, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, appr.ID, appr.User, appr.Prompt, appr.Decision, formatTime(appr.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting approval: %w", err)
	}

	return appr, nil
}

// ResolveApproval records the decision exactly once. Resolving an
// already-resolved approval returns ErrNotFound.
func (s *SQLiteStore) ResolveApproval(ctx context.Context, id, decision, response, toolRunID string) error {
	if decision != DecisionApproved && decision != DecisionDenied {
		return fmt.Errorf("invalid decision %q", decision)
	}

	now := formatTime(time.Now())
	result, err := s.db.ExecContext(ctx, `
		UPDATE approvals
		SET decision = ?, response = ?, tool_run_id = ?, decided_at = ?
		WHERE id = ? AND decision = 'pending'
	`, decision, nullString(response), nullString(toolRunID), now, id)
	if err != nil {
		return fmt.Errorf("resolving approval: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Debug("resolved approval", "id", id, "decision", decision)
	return nil
}

// LinkApprovalRun attaches the tool run produced by an approved request.
func (s *SQLiteStore) LinkApprovalRun(ctx context.Context, approvalID, runID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE approvals SET tool_run_id = ? WHERE id = ?
	`, nullString(runID), approvalID)
	if err != nil {
		return fmt.Errorf("linking approval run: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetApproval retrieves an approval by ID.
func (s *SQLiteStore) GetApproval(ctx context.Context, id string) (*Approval, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tool_run_id, user, prompt, decision, response, created_at, decided_at
		FROM approvals WHERE id = ?
	`, id)

	var appr Approval
	var toolRunID, response, decidedAt sql.NullString
	var createdAt string

	err := row.Scan(&appr.ID, &toolRunID, &appr.User, &appr.Prompt, &appr.Decision, &response, &createdAt, &decidedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning approval: %w", err)
	}

	appr.ToolRunID = toolRunID.String
	appr.Response = response.String
	appr.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if decidedAt.Valid {
		t, err := parseTime(decidedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing decided_at: %w", err)
		}
		appr.DecidedAt = &t
	}

	return &appr, nil
}
