package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"aide/internal/logging"
	"aide/internal/store"
	"aide/internal/tools"
)

// MaxOutputLen bounds tool output persisted to the audit trail.
const MaxOutputLen = 2000

// Trail records tool executions durably. Every execution gets a running
// row before the provider is invoked and exactly one terminal update after.
type Trail struct {
	store *store.SQLiteStore
}

// NewTrail creates a trail over the store.
func NewTrail(s *store.SQLiteStore) *Trail {
	return &Trail{store: s}
}

// Begin opens a running audit row. Args are sanitized before persistence
// so secrets never reach disk.
func (t *Trail) Begin(ctx context.Context, conversationID, toolID string, args map[string]any) (*store.ToolRun, error) {
	input, err := json.Marshal(SanitizeArgs(args))
	if err != nil {
		return nil, fmt.Errorf("encoding tool input: %w", err)
	}

	run, err := t.store.BeginToolRun(ctx, conversationID, toolID, string(input))
	if err != nil {
		return nil, fmt.Errorf("beginning audit row: %w", err)
	}
	return run, nil
}

// Finish closes a running audit row from a tool result.
func (t *Trail) Finish(ctx context.Context, runID string, result tools.ToolResult, duration time.Duration) error {
	status := store.RunStatusSuccess
	if !result.Success {
		status = store.RunStatusFailed
	}

	output := TruncateResult(result.Content, MaxOutputLen)
	if err := t.store.FinishToolRun(ctx, runID, status, output, result.Error, duration); err != nil {
		return fmt.Errorf("finishing audit row: %w", err)
	}

	logging.Debug("audit row closed", "run", runID, "status", status, "duration_ms", duration.Milliseconds())
	return nil
}

// FinishFailure closes a running audit row for an execution that never
// produced a result (panic, provider fault).
func (t *Trail) FinishFailure(ctx context.Context, runID, errText string, duration time.Duration) error {
	if err := t.store.FinishToolRun(ctx, runID, store.RunStatusFailed, "", errText, duration); err != nil {
		return fmt.Errorf("finishing audit row: %w", err)
	}
	return nil
}

// LinkMessage attaches the persisted tool-call message to a run.
func (t *Trail) LinkMessage(ctx context.Context, runID, messageID string) error {
	return t.store.LinkToolRunMessage(ctx, runID, messageID)
}

// sensitiveKeys are argument names whose values never reach the audit log.
var sensitiveKeys = map[string]bool{
	"password":    true,
	"secret":      true,
	"token":       true,
	"api_key":     true,
	"apikey":      true,
	"credentials": true,
	"auth":        true,
}

// SanitizeArgs creates a copy of args with sensitive values redacted.
func SanitizeArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	sanitized := make(map[string]any, len(args))
	for k, v := range args {
		if sensitiveKeys[k] {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}

	return sanitized
}

// TruncateResult truncates a result string to at most maxLen bytes, backing
// up to a rune boundary so the persisted output stays valid UTF-8.
func TruncateResult(result string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = MaxOutputLen
	}
	if len(result) <= maxLen {
		return result
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(result[cut]) {
		cut--
	}
	return result[:cut] + "...[truncated]"
}
