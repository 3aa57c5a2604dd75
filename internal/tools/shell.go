package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"google.golang.org/genai"

	"aide/internal/config"
	"aide/internal/logging"
)

// SafeEnvVars is the whitelist of environment variables passed to shell
// commands. Prevents leaking API keys into subprocesses.
var SafeEnvVars = []string{
	"PATH",
	"HOME",
	"USER",
	"SHELL",
	"TERM",
	"LANG",
	"LC_ALL",
	"TMPDIR",
	"TZ",
}

// DefaultShellTimeout bounds command execution when config does not.
const DefaultShellTimeout = 30 * time.Second

// ShellTool executes read-only shell commands under an allowlist policy.
type ShellTool struct {
	cfg config.ShellConfig
}

// NewShellTool creates a shell tool governed by the given policy.
func NewShellTool(cfg config.ShellConfig) *ShellTool {
	return &ShellTool{cfg: cfg}
}

func (t *ShellTool) Name() string {
	return "shell"
}

func (t *ShellTool) Description() string {
	return "Run a read-only shell command from the allowed set (ls, cat, grep, date, ...)"
}

func (t *ShellTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"command": {
					Type:        genai.TypeString,
					Description: "The shell command to run. Only allowlisted programs are permitted.",
				},
			},
			Required: []string{"command"},
		},
	}
}

func (t *ShellTool) Validate(args map[string]any) error {
	command, ok := GetString(args, "command")
	if !ok || strings.TrimSpace(command) == "" {
		return NewValidationError("command", "command is required")
	}
	return t.checkPolicy(command)
}

// checkPolicy enforces the blocklist first, then the first-token allowlist.
func (t *ShellTool) checkPolicy(command string) error {
	for _, pattern := range t.cfg.BlockedPatterns {
		if pattern != "" && strings.Contains(command, pattern) {
			return NewValidationError("command", "command contains blocked pattern: "+pattern)
		}
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return NewValidationError("command", "command is empty")
	}
	program := fields[0]
	for _, allowed := range t.cfg.Allowlist {
		if program == allowed {
			return nil
		}
	}
	return NewValidationError("command", "program not in allowlist: "+program)
}

func (t *ShellTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	command, _ := GetString(args, "command")
	if err := t.checkPolicy(command); err != nil {
		return NewErrorResult(err.Error()), nil
	}

	timeout := t.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultShellTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = buildSafeEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n"
		}
		output += stderr.String()
	}
	output = t.truncate(output)

	logging.Debug("shell command finished", "command", command, "elapsed", elapsed, "err", err)

	if ctx.Err() == context.DeadlineExceeded {
		return NewErrorResult(fmt.Sprintf("command timed out after %s", timeout)), nil
	}
	if err != nil {
		msg := err.Error()
		if output != "" {
			msg = msg + "\n" + output
		}
		return NewErrorResult(msg), nil
	}

	if strings.TrimSpace(output) == "" {
		output = "(no output)"
	}
	return NewSuccessResult(output), nil
}

func (t *ShellTool) truncate(s string) string {
	max := t.cfg.MaxOutputChars
	if max <= 0 {
		max = 4000
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n...[truncated]"
}

// buildSafeEnv creates a sanitized environment for command execution.
func buildSafeEnv() []string {
	env := make([]string, 0, len(SafeEnvVars))
	hasPath := false
	for _, key := range SafeEnvVars {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
			if key == "PATH" {
				hasPath = true
			}
		}
	}
	if !hasPath {
		env = append(env, "PATH=/usr/local/bin:/usr/bin:/bin")
	}
	return env
}
