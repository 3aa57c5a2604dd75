package brain

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"aide/internal/approval"
	"aide/internal/audit"
	"aide/internal/client"
	"aide/internal/config"
	"aide/internal/memory"
	"aide/internal/router"
	"aide/internal/store"
	"aide/internal/tools"
)

// scriptedClient returns canned replies in order and records every request.
type scriptedClient struct {
	replies  []*client.Response
	calls    int
	lastSys  string
	lastHist [][]*genai.Content
}

func (c *scriptedClient) Send(_ context.Context, system string, history []*genai.Content, _ []*genai.Tool) (*client.Response, error) {
	c.lastSys = system
	snapshot := make([]*genai.Content, len(history))
	copy(snapshot, history)
	c.lastHist = append(c.lastHist, snapshot)

	if c.calls >= len(c.replies) {
		return &client.Response{Text: "done"}, nil
	}
	r := c.replies[c.calls]
	c.calls++
	return r, nil
}

func (c *scriptedClient) ModelName() string { return "scripted" }
func (c *scriptedClient) Close() error      { return nil }

// fakeTool executes a fixed function under a given name.
type fakeTool struct {
	name string
	fn   func(args map[string]any) (tools.ToolResult, error)
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "test tool" }
func (t *fakeTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{Name: t.name, Description: "test tool"}
}
func (t *fakeTool) Validate(map[string]any) error { return nil }
func (t *fakeTool) Execute(_ context.Context, args map[string]any) (tools.ToolResult, error) {
	return t.fn(args)
}

type alwaysApprove struct{}

func (alwaysApprove) Decide(_ context.Context, _ approval.Request) (approval.Decision, error) {
	return approval.Decision{Outcome: approval.Approved, Response: "yes"}, nil
}

type alwaysDeny struct{}

func (alwaysDeny) Decide(_ context.Context, _ approval.Request) (approval.Decision, error) {
	return approval.Decision{Outcome: approval.Denied, Response: "no"}, nil
}

type brainFixture struct {
	brain  *Brain
	store  *store.SQLiteStore
	client *scriptedClient
}

func setupBrain(t *testing.T, replies []*client.Response, provider approval.DecisionProvider, testTools ...tools.Tool) *brainFixture {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, router.Seed(context.Background(), s, config.ToolsConfig{}))

	registry := tools.NewRegistry()
	for _, tool := range testTools {
		registry.MustRegister(tool)
	}

	sc := &scriptedClient{replies: replies}
	b := New(Options{
		Store:        s,
		Client:       sc,
		Registry:     registry,
		Router:       router.NewRouter(s),
		Gate:         approval.NewGate(s, provider, "alice"),
		Trail:        audit.NewTrail(s),
		Assembler:    memory.NewAssembler(s, nil),
		SystemPrompt: "You are a helpful assistant.",
		User:         "alice",
	})

	return &brainFixture{brain: b, store: s, client: sc}
}

func toolCall(name string, args map[string]any) *client.Response {
	return &client.Response{
		FunctionCalls: []*genai.FunctionCall{{ID: "call_1", Name: name, Args: args}},
	}
}

func TestPlainAnswerTurn(t *testing.T) {
	f := setupBrain(t, []*client.Response{{Text: "Hello there."}}, nil)
	ctx := context.Background()

	answer, err := f.brain.HandleTurn(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", answer)
	assert.Equal(t, 1, f.client.calls)
	assert.Contains(t, f.client.lastSys, "You are a helpful assistant.")

	msgs, err := f.store.GetConversationMessages(ctx, f.brain.ConversationID(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Equal(t, msgs[1].ID, f.brain.LastAssistantMessageID())
}

func TestEmptyReplyGetsPlaceholder(t *testing.T) {
	f := setupBrain(t, []*client.Response{{Text: ""}}, nil)

	answer, err := f.brain.HandleTurn(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "(No response)", answer)
}

func TestApprovedToolExecutesAndAudits(t *testing.T) {
	echo := &fakeTool{name: "shell", fn: func(args map[string]any) (tools.ToolResult, error) {
		return tools.NewSuccessResult("Mon Sep 1"), nil
	}}
	f := setupBrain(t, []*client.Response{
		toolCall("shell", map[string]any{"command": "date"}),
		{Text: "It is Monday."},
	}, alwaysApprove{}, echo)
	ctx := context.Background()

	answer, err := f.brain.HandleTurn(ctx, "what day is it?")
	require.NoError(t, err)
	assert.Equal(t, "It is Monday.", answer)

	// Exactly one run, finished successfully.
	stats, err := f.store.GetToolRunStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)

	// Message order: user, tool-call, tool-result, final answer.
	msgs, err := f.store.GetConversationMessages(ctx, f.brain.ConversationID(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, "shell", msgs[1].ToolName)
	assert.Equal(t, store.RoleTool, msgs[2].Role)
	assert.Equal(t, "Mon Sep 1", msgs[2].Content)
	assert.Equal(t, "It is Monday.", msgs[3].Content)

	// The skill counter moved.
	sk, err := f.store.GetSkill(ctx, "shell")
	require.NoError(t, err)
	assert.Equal(t, 1, sk.Uses)
	assert.Equal(t, 1, sk.Successes)
}

func TestDeniedToolSkipsRunAndContinues(t *testing.T) {
	var executed bool
	sh := &fakeTool{name: "shell", fn: func(map[string]any) (tools.ToolResult, error) {
		executed = true
		return tools.NewSuccessResult("should not happen"), nil
	}}
	f := setupBrain(t, []*client.Response{
		toolCall("shell", map[string]any{"command": "rm notes.txt"}),
		{Text: "Understood, I won't."},
	}, alwaysDeny{}, sh)
	ctx := context.Background()

	answer, err := f.brain.HandleTurn(ctx, "delete my notes")
	require.NoError(t, err)
	assert.Equal(t, "Understood, I won't.", answer)
	assert.False(t, executed)

	// Denial leaves no audit row.
	stats, err := f.store.GetToolRunStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)

	// But the denial is visible in the message history.
	msgs, err := f.store.GetConversationMessages(ctx, f.brain.ConversationID(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "User denied this action.", msgs[2].Content)
}

func TestNilProviderDeniesByDefault(t *testing.T) {
	sh := &fakeTool{name: "shell", fn: func(map[string]any) (tools.ToolResult, error) {
		return tools.NewSuccessResult("nope"), nil
	}}
	f := setupBrain(t, []*client.Response{
		toolCall("shell", map[string]any{"command": "date"}),
		{Text: "Could not run that."},
	}, nil, sh)

	answer, err := f.brain.HandleTurn(context.Background(), "run date")
	require.NoError(t, err)
	assert.Equal(t, "Could not run that.", answer)

	stats, err := f.store.GetToolRunStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestUnknownToolAutoRegistersAndIsDenied(t *testing.T) {
	f := setupBrain(t, []*client.Response{
		toolCall("teleport", map[string]any{"destination": "home"}),
		{Text: "I cannot do that."},
	}, nil)
	ctx := context.Background()

	answer, err := f.brain.HandleTurn(ctx, "teleport me home")
	require.NoError(t, err)
	assert.Equal(t, "I cannot do that.", answer)

	// Auto-registered with restrictive defaults.
	desc, err := f.store.GetToolDescriptor(ctx, "teleport")
	require.NoError(t, err)
	assert.Equal(t, store.RiskHigh, desc.Risk)
	assert.True(t, desc.RequiresConfirm)

	// Denied without a decision provider, so no audit row.
	stats, err := f.store.GetToolRunStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestProviderPanicBecomesFailedRun(t *testing.T) {
	bomb := &fakeTool{name: "notes", fn: func(map[string]any) (tools.ToolResult, error) {
		panic("nil dereference")
	}}
	f := setupBrain(t, []*client.Response{
		toolCall("notes", map[string]any{"action": "add", "text": "x"}),
		{Text: "Something went wrong."},
	}, nil, bomb)
	ctx := context.Background()

	answer, err := f.brain.HandleTurn(ctx, "note this")
	require.NoError(t, err)
	assert.Equal(t, "Something went wrong.", answer)

	stats, err := f.store.GetToolRunStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Failed)

	runs, err := f.store.RecentToolRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "panicked")
}

func TestIterationCapProducesBestEffortAnswer(t *testing.T) {
	count := 0
	noteTool := &fakeTool{name: "notes", fn: func(map[string]any) (tools.ToolResult, error) {
		count++
		return tools.NewSuccessResult("ok"), nil
	}}

	// Every reply asks for another tool call; text rides along on the last.
	replies := make([]*client.Response, 6)
	for i := range replies {
		replies[i] = toolCall("notes", map[string]any{"action": "add", "text": "x"})
	}
	replies[4].Text = "Partial progress so far."
	f := setupBrain(t, replies, nil, noteTool)

	answer, err := f.brain.HandleTurn(context.Background(), "keep noting")
	require.NoError(t, err)
	assert.Equal(t, "Partial progress so far.", answer)
	assert.Equal(t, 5, count) // capped at 5 iterations
	assert.Equal(t, 5, f.client.calls)
}

func TestOnlyFirstToolCallIsActedOn(t *testing.T) {
	var commands []string
	noteTool := &fakeTool{name: "notes", fn: func(args map[string]any) (tools.ToolResult, error) {
		text, _ := tools.GetString(args, "text")
		commands = append(commands, text)
		return tools.NewSuccessResult("ok"), nil
	}}

	multi := &client.Response{FunctionCalls: []*genai.FunctionCall{
		{ID: "call_1", Name: "notes", Args: map[string]any{"action": "add", "text": "first"}},
		{ID: "call_2", Name: "notes", Args: map[string]any{"action": "add", "text": "second"}},
	}}
	f := setupBrain(t, []*client.Response{multi, {Text: "noted"}}, nil, noteTool)

	_, err := f.brain.HandleTurn(context.Background(), "note twice")
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, commands)
}

func TestArgumentsPassedAsCopy(t *testing.T) {
	noteTool := &fakeTool{name: "notes", fn: func(args map[string]any) (tools.ToolResult, error) {
		delete(args, "action") // destructive consumer
		return tools.NewSuccessResult("ok"), nil
	}}

	original := map[string]any{"action": "add", "text": "x"}
	f := setupBrain(t, []*client.Response{toolCall("notes", original), {Text: "done"}}, nil, noteTool)

	_, err := f.brain.HandleTurn(context.Background(), "note")
	require.NoError(t, err)
	assert.Equal(t, "add", original["action"])
}

func TestConversationLifecycle(t *testing.T) {
	f := setupBrain(t, []*client.Response{{Text: "hi"}, {Text: "hello again"}}, nil)
	ctx := context.Background()

	_, err := f.brain.HandleTurn(ctx, "hi")
	require.NoError(t, err)
	firstConv := f.brain.ConversationID()

	require.NoError(t, f.brain.EndConversation(ctx))
	assert.Empty(t, f.brain.ConversationID())

	conv, err := f.store.GetConversation(ctx, firstConv)
	require.NoError(t, err)
	assert.NotNil(t, conv.EndedAt)

	// The next turn opens a fresh conversation.
	_, err = f.brain.HandleTurn(ctx, "hello?")
	require.NoError(t, err)
	assert.NotEqual(t, firstConv, f.brain.ConversationID())
}

func TestRateLast(t *testing.T) {
	f := setupBrain(t, []*client.Response{{Text: "answer"}}, nil)
	ctx := context.Background()

	// Nothing to rate before the first answer.
	assert.Error(t, f.brain.RateLast(ctx, 4, "", ""))

	_, err := f.brain.HandleTurn(ctx, "question")
	require.NoError(t, err)

	require.NoError(t, f.brain.RateLast(ctx, 2, "tone", "use 24h time"))

	stats, err := f.store.GetFeedbackStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1, stats.LowRated)
}
