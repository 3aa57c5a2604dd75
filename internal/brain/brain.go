package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"

	"aide/internal/approval"
	"aide/internal/audit"
	"aide/internal/client"
	"aide/internal/logging"
	"aide/internal/memory"
	"aide/internal/router"
	"aide/internal/store"
	"aide/internal/tools"
)

const (
	// maxToolIterations bounds tool calls per user turn; denials count.
	maxToolIterations = 5

	// emptyReplyPlaceholder stands in for a reply with no text at all.
	emptyReplyPlaceholder = "(No response)"

	// deniedResultText is the synthetic tool result for a denied call.
	deniedResultText = "User denied this action."

	// transcriptHighWater and transcriptKeep bound the in-memory
	// transcript. Durable storage keeps the full history regardless.
	transcriptHighWater = 60
	transcriptKeep      = 30
)

// Brain drives the conversation loop: model calls, tool resolution,
// approval, audited execution, and persistence.
type Brain struct {
	store     *store.SQLiteStore
	client    client.Client
	registry  *tools.Registry
	router    *router.Router
	gate      *approval.Gate
	trail     *audit.Trail
	assembler *memory.Assembler

	systemPrompt string
	user         string

	conversationID string
	transcript     []*genai.Content
	lastAssistant  string // message ID of the last final answer, for /rate
}

// Options bundles the collaborators a Brain needs.
type Options struct {
	Store        *store.SQLiteStore
	Client       client.Client
	Registry     *tools.Registry
	Router       *router.Router
	Gate         *approval.Gate
	Trail        *audit.Trail
	Assembler    *memory.Assembler
	SystemPrompt string
	User         string
}

// New creates a Brain. No conversation is open until the first turn.
func New(opts Options) *Brain {
	return &Brain{
		store:        opts.Store,
		client:       opts.Client,
		registry:     opts.Registry,
		router:       opts.Router,
		gate:         opts.Gate,
		trail:        opts.Trail,
		assembler:    opts.Assembler,
		systemPrompt: opts.SystemPrompt,
		user:         opts.User,
	}
}

// ConversationID returns the open conversation, or empty.
func (b *Brain) ConversationID() string {
	return b.conversationID
}

// LastAssistantMessageID returns the message ID of the latest final answer.
func (b *Brain) LastAssistantMessageID() string {
	return b.lastAssistant
}

// StartConversation opens a new conversation, closing any previous one.
func (b *Brain) StartConversation(ctx context.Context, title string) error {
	if err := b.EndConversation(ctx); err != nil {
		return err
	}

	conv, err := b.store.CreateConversation(ctx, b.user, title)
	if err != nil {
		return fmt.Errorf("starting conversation: %w", err)
	}

	b.conversationID = conv.ID
	b.transcript = nil
	b.lastAssistant = ""
	logging.Info("conversation started", "id", conv.ID)
	return nil
}

// EndConversation closes the open conversation, if any. The in-flight
// transcript is discarded; durable history remains.
func (b *Brain) EndConversation(ctx context.Context) error {
	if b.conversationID == "" {
		return nil
	}
	if err := b.store.EndConversation(ctx, b.conversationID); err != nil {
		return fmt.Errorf("ending conversation: %w", err)
	}
	b.conversationID = ""
	b.transcript = nil
	return nil
}

// HandleTurn runs one full user turn and returns the final answer text.
// Model-call and persistence failures are fatal to the turn; provider
// failures are captured as failed results and the loop continues.
func (b *Brain) HandleTurn(ctx context.Context, userInput string) (string, error) {
	if b.conversationID == "" {
		if err := b.StartConversation(ctx, ""); err != nil {
			return "", err
		}
	}

	if err := b.store.AppendMessage(ctx, &store.Message{
		ConversationID: b.conversationID,
		Role:           store.RoleUser,
		Content:        userInput,
	}); err != nil {
		return "", fmt.Errorf("persisting user turn: %w", err)
	}
	b.transcript = append(b.transcript, genai.NewContentFromText(userInput, genai.RoleUser))

	defer b.trimTranscript()

	var lastText string
	for iteration := 0; iteration < maxToolIterations; iteration++ {
		system, err := b.buildSystem(ctx)
		if err != nil {
			return "", err
		}

		reply, err := b.client.Send(ctx, system, b.transcript, b.registry.GeminiTools())
		if err != nil {
			return "", fmt.Errorf("model call failed: %w", err)
		}
		lastText = reply.Text

		// Only the first tool call of a reply is acted on.
		if len(reply.FunctionCalls) == 0 {
			return b.finishTurn(ctx, reply.Text)
		}
		call := reply.FunctionCalls[0]
		if call == nil || call.Name == "" {
			// Unparseable tool request: fall back to the reply text.
			return b.finishTurn(ctx, reply.Text)
		}

		if err := b.runToolIteration(ctx, call); err != nil {
			return "", err
		}
	}

	// Iteration cap reached with an outstanding tool request: degrade to
	// the last reply text rather than hang.
	logging.Warn("tool iteration cap reached", "conversation", b.conversationID)
	return b.finishTurn(ctx, lastText)
}

// runToolIteration handles one tool call: governance, approval, audited
// execution, and persistence of the call/result message pair.
func (b *Brain) runToolIteration(ctx context.Context, call *genai.FunctionCall) error {
	// Providers may consume discriminator fields destructively; they get
	// a copy so our own view of the arguments never mutates.
	args := copyArgs(call.Args)

	callMsg, err := b.persistToolCall(ctx, call)
	if err != nil {
		return err
	}
	b.transcript = append(b.transcript, &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{{FunctionCall: call}},
	})

	desc, err := b.router.Resolve(ctx, call.Name, args)
	if err != nil {
		return fmt.Errorf("resolving tool %s: %w", call.Name, err)
	}

	if !desc.Enabled {
		return b.persistToolResult(ctx, call, fmt.Sprintf("Tool %s is disabled.", desc.Name))
	}

	var approvalID string
	if b.gate.NeedsApproval(desc) {
		res, err := b.gate.Request(ctx, approval.Request{
			ToolName:      call.Name,
			GovernanceKey: desc.Name,
			Prompt:        tools.Summary(call.Name, args),
			Args:          args,
		})
		if err != nil {
			return err
		}
		if res.Outcome != approval.Approved {
			// No provider call, no audit row. The denial message keeps
			// the model informed and consumes this iteration.
			return b.persistToolResult(ctx, call, deniedResultText)
		}
		approvalID = res.ApprovalID
	}

	run, err := b.trail.Begin(ctx, b.conversationID, desc.ID, args)
	if err != nil {
		return err
	}
	if err := b.trail.LinkMessage(ctx, run.ID, callMsg.ID); err != nil {
		return err
	}
	if approvalID != "" {
		if err := b.gate.AttachRun(ctx, approvalID, run.ID); err != nil {
			return err
		}
	}

	start := time.Now()
	result := b.execute(ctx, call.Name, args)
	elapsed := time.Since(start)

	if err := b.trail.Finish(ctx, run.ID, result, elapsed); err != nil {
		return err
	}
	if err := b.store.RecordSkillUse(ctx, desc.Name, result.Success); err != nil {
		logging.Warn("recording skill use failed", "tool", desc.Name, "error", err)
	}

	return b.persistToolResult(ctx, call, tools.FormatResult(call.Name, result))
}

// execute runs the provider defensively: a missing tool, a provider error,
// or a panic all become structured failed results, never faults.
func (b *Brain) execute(ctx context.Context, name string, args map[string]any) (result tools.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("tool panicked", "tool", name, "panic", r)
			result = tools.NewErrorResult(fmt.Sprintf("tool %s panicked: %v", name, r))
		}
	}()

	tool, ok := b.registry.Get(name)
	if !ok {
		return tools.NewErrorResult(fmt.Sprintf("no provider registered for tool %s", name))
	}

	res, err := tool.Execute(ctx, args)
	if err != nil {
		return tools.NewErrorResult(fmt.Sprintf("%s failed: %v", name, err))
	}
	return res
}

// finishTurn persists the final assistant answer and returns it.
func (b *Brain) finishTurn(ctx context.Context, text string) (string, error) {
	if text == "" {
		text = emptyReplyPlaceholder
	}

	msg := &store.Message{
		ConversationID: b.conversationID,
		Role:           store.RoleAssistant,
		Content:        text,
	}
	if err := b.store.AppendMessage(ctx, msg); err != nil {
		return "", fmt.Errorf("persisting final answer: %w", err)
	}

	b.lastAssistant = msg.ID
	b.transcript = append(b.transcript, genai.NewContentFromText(text, genai.RoleModel))
	return text, nil
}

func (b *Brain) persistToolCall(ctx context.Context, call *genai.FunctionCall) (*store.Message, error) {
	input, err := json.Marshal(call.Args)
	if err != nil {
		return nil, fmt.Errorf("encoding tool call args: %w", err)
	}

	msg := &store.Message{
		ConversationID: b.conversationID,
		Role:           store.RoleAssistant,
		Kind:           store.KindJSON,
		Content:        fmt.Sprintf("[tool call: %s]", call.Name),
		ToolCallID:     call.ID,
		ToolName:       call.Name,
		ToolInput:      string(input),
	}
	if err := b.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persisting tool call: %w", err)
	}
	return msg, nil
}

// persistToolResult writes the tool-result message durably and to the
// transcript, immediately after its tool-call message.
func (b *Brain) persistToolResult(ctx context.Context, call *genai.FunctionCall, text string) error {
	if err := b.store.AppendMessage(ctx, &store.Message{
		ConversationID: b.conversationID,
		Role:           store.RoleTool,
		Content:        text,
		ToolCallID:     call.ID,
		ToolName:       call.Name,
	}); err != nil {
		return fmt.Errorf("persisting tool result: %w", err)
	}

	part := genai.NewPartFromFunctionResponse(call.Name, map[string]any{"content": text})
	part.FunctionResponse.ID = call.ID
	b.transcript = append(b.transcript, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{part},
	})
	return nil
}

// buildSystem joins the base prompt with the assembled memory context.
func (b *Brain) buildSystem(ctx context.Context) (string, error) {
	recent, err := b.store.RecentUserMessages(ctx, b.conversationID, 3)
	if err != nil {
		return "", fmt.Errorf("loading recent user turns: %w", err)
	}
	turns := make([]string, len(recent))
	for i, m := range recent {
		turns[i] = m.Content
	}

	memoryContext, err := b.assembler.Build(ctx, turns)
	if err != nil {
		return "", fmt.Errorf("assembling context: %w", err)
	}

	return b.systemPrompt + "\n\n" + memoryContext, nil
}

func (b *Brain) trimTranscript() {
	if len(b.transcript) > transcriptHighWater {
		trimmed := make([]*genai.Content, transcriptKeep)
		copy(trimmed, b.transcript[len(b.transcript)-transcriptKeep:])
		b.transcript = trimmed
	}
}

func copyArgs(args map[string]any) map[string]any {
	cp := make(map[string]any, len(args))
	for k, v := range args {
		cp[k] = v
	}
	return cp
}

// RateLast records feedback for the most recent final answer.
func (b *Brain) RateLast(ctx context.Context, rating int, label, correction string) error {
	if b.lastAssistant == "" {
		return fmt.Errorf("nothing to rate yet")
	}
	return b.store.AddFeedback(ctx, &store.Feedback{
		ConversationID: b.conversationID,
		MessageID:      b.lastAssistant,
		Rating:         rating,
		Label:          label,
		Correction:     correction,
	})
}
