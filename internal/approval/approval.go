package approval

import (
	"context"
	"fmt"

	"aide/internal/logging"
	"aide/internal/store"
)

// Outcome of one approval request.
type Outcome int

const (
	// Denied means the user rejected the action or nobody could be asked.
	Denied Outcome = iota
	// Approved means the user explicitly confirmed the action.
	Approved
	// TimedOut means the decision provider gave up waiting.
	TimedOut
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case TimedOut:
		return "timed out"
	default:
		return "denied"
	}
}

// Request describes one gated tool call for the decision provider.
type Request struct {
	ToolName      string
	GovernanceKey string
	Prompt        string
	Args          map[string]any
}

// Decision is a provider's answer plus any free-form response text.
type Decision struct {
	Outcome  Outcome
	Response string
}

// DecisionProvider answers approval requests. Implementations range from an
// interactive terminal prompt to an auto-approver in tests.
type DecisionProvider interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

// Gate enforces confirmation for tools whose descriptors require it and
// records every gated request durably.
type Gate struct {
	store    *store.SQLiteStore
	provider DecisionProvider // nil means deny everything
	user     string
}

// NewGate creates a gate. A nil provider is valid and denies all requests;
// running headless must never silently approve side effects.
func NewGate(s *store.SQLiteStore, provider DecisionProvider, user string) *Gate {
	return &Gate{store: s, provider: provider, user: user}
}

// NeedsApproval reports whether the descriptor demands confirmation.
func (g *Gate) NeedsApproval(desc *store.ToolDescriptor) bool {
	return desc != nil && desc.RequiresConfirm
}

// Result is the durable record of one gate pass.
type Result struct {
	Outcome    Outcome
	Response   string
	ApprovalID string
}

// Request persists a pending approval, consults the provider, and resolves
// the row exactly once. Provider errors resolve as denials: an answer we
// could not obtain is an answer of no.
func (g *Gate) Request(ctx context.Context, req Request) (*Result, error) {
	appr, err := g.store.CreateApproval(ctx, g.user, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("recording approval request: %w", err)
	}

	decision := Decision{Outcome: Denied, Response: "no decision provider configured"}
	if g.provider != nil {
		d, err := g.provider.Decide(ctx, req)
		if err != nil {
			logging.Warn("decision provider failed", "tool", req.ToolName, "error", err)
			decision = Decision{Outcome: Denied, Response: "decision provider error: " + err.Error()}
		} else {
			decision = d
		}
	}

	stored := store.DecisionDenied
	if decision.Outcome == Approved {
		stored = store.DecisionApproved
	}
	if err := g.store.ResolveApproval(ctx, appr.ID, stored, decision.Response, ""); err != nil {
		return nil, fmt.Errorf("resolving approval: %w", err)
	}

	logging.Info("approval resolved", "key", req.GovernanceKey, "outcome", decision.Outcome.String())
	return &Result{
		Outcome:    decision.Outcome,
		Response:   decision.Response,
		ApprovalID: appr.ID,
	}, nil
}

// AttachRun links the tool run that an approved request produced back to
// its approval row.
func (g *Gate) AttachRun(ctx context.Context, approvalID, runID string) error {
	appr, err := g.store.GetApproval(ctx, approvalID)
	if err != nil {
		return err
	}
	if appr.Decision != store.DecisionApproved {
		return fmt.Errorf("approval %s is %s, cannot attach a run", approvalID, appr.Decision)
	}
	return g.store.LinkApprovalRun(ctx, approvalID, runID)
}
