// Package commands implements the line-oriented slash-command surface.
// Commands read and display state through the store, brain, and trainer;
// none of them contains governance logic.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"aide/internal/brain"
	"aide/internal/semantic"
	"aide/internal/store"
	"aide/internal/trainer"
)

// Command represents a slash command.
type Command interface {
	Name() string
	Description() string
	Usage() string
	Execute(ctx context.Context, args []string, app AppInterface) (string, error)
}

// AppInterface defines what commands need from the application.
type AppInterface interface {
	GetStore() *store.SQLiteStore
	GetBrain() *brain.Brain
	GetTrainer() *trainer.Trainer
	GetSearch() *semantic.Index // nil when semantic search is disabled
	RequestQuit()
}

// Handler manages slash commands.
type Handler struct {
	commands map[string]Command
}

// NewHandler creates a new command handler with built-in commands.
func NewHandler() *Handler {
	h := &Handler{
		commands: make(map[string]Command),
	}

	h.Register(&HelpCommand{handler: h})
	h.Register(&ClearCommand{})
	h.Register(&QuitCommand{})

	h.Register(&RateCommand{})
	h.Register(&StatsCommand{})
	h.Register(&ImproveCommand{})

	h.Register(&MemoryCommand{})
	h.Register(&RecallCommand{})
	h.Register(&RememberCommand{})
	h.Register(&PinCommand{})
	h.Register(&ForgetCommand{})

	h.Register(&ConvosCommand{})
	h.Register(&ToolsCommand{})
	h.Register(&SkillsCommand{})
	h.Register(&TeachCommand{})

	h.Register(&SetCommand{})
	h.Register(&PrefsCommand{})

	return h
}

// Register adds a command to the handler.
func (h *Handler) Register(cmd Command) {
	h.commands[cmd.Name()] = cmd
}

// Parse checks if input is a slash command and extracts name and args.
// Returns (name, args, isCommand). Paths like /home/user/... are NOT
// treated as commands.
func (h *Handler) Parse(input string) (string, []string, bool) {
	input = strings.TrimSpace(input)

	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "", nil, false
	}

	name := strings.TrimPrefix(parts[0], "/")
	if _, exists := h.commands[name]; !exists {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return name, args, true
}

// Execute runs a command by name.
func (h *Handler) Execute(ctx context.Context, name string, args []string, app AppInterface) (string, error) {
	cmd, exists := h.commands[name]
	if !exists {
		return "", fmt.Errorf("unknown command: /%s", name)
	}
	return cmd.Execute(ctx, args, app)
}

// ListCommands returns all registered commands sorted by name.
func (h *Handler) ListCommands() []Command {
	cmds := make([]Command, 0, len(h.commands))
	for _, cmd := range h.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
	return cmds
}

// GetCommand returns a command by name.
func (h *Handler) GetCommand(name string) (Command, bool) {
	cmd, exists := h.commands[name]
	return cmd, exists
}
