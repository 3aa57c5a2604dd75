package commands

import (
	"context"
	"fmt"
	"strings"
)

// HelpCommand lists available commands.
type HelpCommand struct {
	handler *Handler
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "/help" }

func (c *HelpCommand) Execute(_ context.Context, _ []string, _ AppInterface) (string, error) {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cmd := range c.handler.ListCommands() {
		fmt.Fprintf(&b, "  %-28s %s\n", cmd.Usage(), cmd.Description())
	}
	return b.String(), nil
}

// ClearCommand starts a fresh conversation.
type ClearCommand struct{}

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Description() string { return "Start a fresh conversation" }
func (c *ClearCommand) Usage() string       { return "/clear" }

func (c *ClearCommand) Execute(ctx context.Context, _ []string, app AppInterface) (string, error) {
	if err := app.GetBrain().StartConversation(ctx, ""); err != nil {
		return "", err
	}
	return "New conversation started.", nil
}

// QuitCommand ends the session.
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Description() string { return "Exit" }
func (c *QuitCommand) Usage() string       { return "/quit" }

func (c *QuitCommand) Execute(ctx context.Context, _ []string, app AppInterface) (string, error) {
	if err := app.GetBrain().EndConversation(ctx); err != nil {
		return "", err
	}
	app.RequestQuit()
	return "Shutting down.", nil
}
