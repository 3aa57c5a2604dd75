package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"aide/internal/approval"
	"aide/internal/audit"
	"aide/internal/brain"
	"aide/internal/client"
	"aide/internal/config"
	"aide/internal/memory"
	"aide/internal/router"
	"aide/internal/semantic"
	"aide/internal/store"
	"aide/internal/tools"
	"aide/internal/trainer"
)

// echoClient answers every prompt with fixed text.
type echoClient struct{ text string }

func (c *echoClient) Send(context.Context, string, []*genai.Content, []*genai.Tool) (*client.Response, error) {
	return &client.Response{Text: c.text}, nil
}
func (c *echoClient) ModelName() string { return "echo" }
func (c *echoClient) Close() error      { return nil }

type testApp struct {
	store   *store.SQLiteStore
	brain   *brain.Brain
	trainer *trainer.Trainer
	quit    bool
}

func (a *testApp) GetStore() *store.SQLiteStore { return a.store }
func (a *testApp) GetBrain() *brain.Brain       { return a.brain }
func (a *testApp) GetTrainer() *trainer.Trainer { return a.trainer }
func (a *testApp) GetSearch() *semantic.Index   { return nil }
func (a *testApp) RequestQuit()                 { a.quit = true }

func setupApp(t *testing.T) *testApp {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, router.Seed(context.Background(), s, config.ToolsConfig{}))

	b := brain.New(brain.Options{
		Store:        s,
		Client:       &echoClient{text: "hello"},
		Registry:     tools.NewRegistry(),
		Router:       router.NewRouter(s),
		Gate:         approval.NewGate(s, nil, "alice"),
		Trail:        audit.NewTrail(s),
		Assembler:    memory.NewAssembler(s, nil),
		SystemPrompt: "test",
		User:         "alice",
	})

	return &testApp{store: s, brain: b, trainer: trainer.New(s, nil)}
}

func TestParseRecognizesCommandsNotPaths(t *testing.T) {
	h := NewHandler()

	name, args, ok := h.Parse("/memory coffee order")
	require.True(t, ok)
	assert.Equal(t, "memory", name)
	assert.Equal(t, []string{"coffee", "order"}, args)

	_, _, ok = h.Parse("/home/alice/notes.txt")
	assert.False(t, ok)

	_, _, ok = h.Parse("plain question")
	assert.False(t, ok)
}

func TestHelpListsEveryCommand(t *testing.T) {
	h := NewHandler()
	app := setupApp(t)

	out, err := h.Execute(context.Background(), "help", nil, app)
	require.NoError(t, err)
	for _, cmd := range h.ListCommands() {
		assert.Contains(t, out, "/"+cmd.Name())
	}
}

func TestMemoryLifecycleCommands(t *testing.T) {
	h := NewHandler()
	app := setupApp(t)
	ctx := context.Background()

	out, err := h.Execute(ctx, "remember", []string{"prefers", "green", "tea"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "Stored: mem_")

	out, err = h.Execute(ctx, "memory", []string{"tea"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "prefers green tea")

	items, err := app.store.QueryMemories(ctx, store.MemoryFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	id := items[0].ID

	out, err = h.Execute(ctx, "pin", []string{id}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "pinned")

	out, err = h.Execute(ctx, "forget", []string{id}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	out, err = h.Execute(ctx, "forget", []string{id}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "not found")
}

func TestRecallFallsBackToKeywordSearch(t *testing.T) {
	h := NewHandler()
	app := setupApp(t)
	ctx := context.Background()

	_, err := h.Execute(ctx, "remember", []string{"standup", "at", "9am"}, app)
	require.NoError(t, err)

	out, err := h.Execute(ctx, "recall", []string{"standup"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "Falling back to keyword search")
	assert.Contains(t, out, "standup at 9am")
}

func TestPreferenceCommands(t *testing.T) {
	h := NewHandler()
	app := setupApp(t)
	ctx := context.Background()

	out, err := h.Execute(ctx, "prefs", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "No preferences set")

	_, err = h.Execute(ctx, "set", []string{"timezone", "Europe/Berlin"}, app)
	require.NoError(t, err)

	out, err = h.Execute(ctx, "prefs", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "timezone: Europe/Berlin")
}

func TestTeachAndSkills(t *testing.T) {
	h := NewHandler()
	app := setupApp(t)
	ctx := context.Background()

	out, err := h.Execute(ctx, "skills", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "No skills learned yet")

	_, err = h.Execute(ctx, "teach", []string{"triage", "sort", "incoming", "bug", "reports"}, app)
	require.NoError(t, err)

	out, err = h.Execute(ctx, "skills", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "triage")
	assert.Contains(t, out, "sort incoming bug reports")
}

func TestRateStatsAndConvos(t *testing.T) {
	h := NewHandler()
	app := setupApp(t)
	ctx := context.Background()

	// Rating before any answer fails.
	_, err := h.Execute(ctx, "rate", []string{"5"}, app)
	assert.Error(t, err)

	_, err = app.brain.HandleTurn(ctx, "hi")
	require.NoError(t, err)

	out, err := h.Execute(ctx, "rate", []string{"4", "tone"}, app)
	require.NoError(t, err)
	assert.Contains(t, out, "Feedback recorded")

	_, err = h.Execute(ctx, "rate", []string{"six"}, app)
	assert.Error(t, err)

	out, err = h.Execute(ctx, "stats", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "Avg rating:   4.0/5 (1 ratings)")
	assert.Contains(t, out, "not configured")

	out, err = h.Execute(ctx, "convos", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, app.brain.ConversationID())
}

func TestToolsListsGovernance(t *testing.T) {
	h := NewHandler()
	app := setupApp(t)

	out, err := h.Execute(context.Background(), "tools", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "shell")
	assert.Contains(t, out, "high")
	assert.Contains(t, out, "memory_query")
}

func TestClearAndQuit(t *testing.T) {
	h := NewHandler()
	app := setupApp(t)
	ctx := context.Background()

	out, err := h.Execute(ctx, "clear", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "New conversation started")
	first := app.brain.ConversationID()
	assert.NotEmpty(t, first)

	out, err = h.Execute(ctx, "quit", nil, app)
	require.NoError(t, err)
	assert.Contains(t, out, "Shutting down")
	assert.True(t, app.quit)
	assert.Empty(t, app.brain.ConversationID())
}
