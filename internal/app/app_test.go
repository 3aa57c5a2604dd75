package app

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"aide/internal/approval"
	"aide/internal/audit"
	"aide/internal/brain"
	"aide/internal/client"
	"aide/internal/commands"
	"aide/internal/config"
	"aide/internal/memory"
	"aide/internal/router"
	"aide/internal/semantic"
	"aide/internal/store"
	"aide/internal/tools"
	"aide/internal/trainer"
)

type stubClient struct{}

func (stubClient) Send(_ context.Context, _ string, _ []*genai.Content, _ []*genai.Tool) (*client.Response, error) {
	return &client.Response{Text: "ok"}, nil
}

func (stubClient) ModelName() string { return "stub-model" }
func (stubClient) Close() error      { return nil }

func newTestApp(t *testing.T) *App {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := &config.Config{}
	cfg.Assistant.User = "alice"

	index := semantic.NewIndex(s, nil, 0)
	b := brain.New(brain.Options{
		Store:     s,
		Client:    stubClient{},
		Registry:  tools.NewRegistry(),
		Router:    router.NewRouter(s),
		Gate:      approval.NewGate(s, nil, "alice"),
		Trail:     audit.NewTrail(s),
		Assembler: memory.NewAssembler(s, index),
		User:      "alice",
	})

	return &App{
		cfg:     cfg,
		store:   s,
		client:  stubClient{},
		search:  index,
		brain:   b,
		trainer: trainer.New(s, index),
		handler: commands.NewHandler(),
	}
}

func TestRunStopsAtTurnBoundaryOnShutdownSignal(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	// Input that never arrives keeps the loop waiting at the prompt.
	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan error, 1)
	go func() { done <- a.run(ctx, pr) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancellation")
	}

	// The loop returned without tearing anything down: the store must
	// still accept writes until the caller's deferred Close runs.
	_, err := a.store.CreateConversation(context.Background(), "alice", "")
	require.NoError(t, err)
}

func TestRunExitsOnQuitCommand(t *testing.T) {
	a := newTestApp(t)

	err := a.run(context.Background(), strings.NewReader("/quit\n"))
	require.NoError(t, err)
	assert.True(t, a.quit)
}

func TestRunReturnsOnEOF(t *testing.T) {
	a := newTestApp(t)

	err := a.run(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.False(t, a.quit)
}
