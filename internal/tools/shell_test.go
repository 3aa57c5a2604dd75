package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/config"
)

func testShellConfig() config.ShellConfig {
	return config.ShellConfig{
		Allowlist:       []string{"echo", "date", "ls", "sleep"},
		BlockedPatterns: []string{"rm -rf", "> /dev/"},
		Timeout:         5 * time.Second,
		MaxOutputChars:  100,
	}
}

func TestShellToolRunsAllowedCommand(t *testing.T) {
	tool := NewShellTool(testShellConfig())

	result, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "hello")
}

func TestShellToolRejectsUnlistedProgram(t *testing.T) {
	tool := NewShellTool(testShellConfig())

	err := tool.Validate(map[string]any{"command": "curl http://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowlist")

	// Execute enforces the same policy even if Validate was skipped.
	result, err := tool.Execute(context.Background(), map[string]any{"command": "curl http://example.com"})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestShellToolRejectsBlockedPattern(t *testing.T) {
	tool := NewShellTool(testShellConfig())

	// "echo" is allowlisted but the pattern check comes first.
	err := tool.Validate(map[string]any{"command": "echo ok; rm -rf /"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked pattern")
}

func TestShellToolRequiresCommand(t *testing.T) {
	tool := NewShellTool(testShellConfig())

	assert.Error(t, tool.Validate(map[string]any{}))
	assert.Error(t, tool.Validate(map[string]any{"command": "   "}))
}

func TestShellToolTruncatesOutput(t *testing.T) {
	cfg := testShellConfig()
	cfg.MaxOutputChars = 10
	tool := NewShellTool(cfg)

	result, err := tool.Execute(context.Background(), map[string]any{
		"command": "echo aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "...[truncated]")
}

func TestShellToolTimeout(t *testing.T) {
	cfg := testShellConfig()
	cfg.Timeout = 100 * time.Millisecond
	tool := NewShellTool(cfg)

	result, err := tool.Execute(context.Background(), map[string]any{"command": "sleep 2"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out")
}
