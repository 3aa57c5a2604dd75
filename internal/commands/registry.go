package commands

import (
	"context"
	"fmt"
	"strings"
)

// ConvosCommand lists recent conversations.
type ConvosCommand struct{}

func (c *ConvosCommand) Name() string        { return "convos" }
func (c *ConvosCommand) Description() string { return "List recent conversations" }
func (c *ConvosCommand) Usage() string       { return "/convos" }

func (c *ConvosCommand) Execute(ctx context.Context, _ []string, app AppInterface) (string, error) {
	convos, err := app.GetStore().ListConversations(ctx, 10)
	if err != nil {
		return "", err
	}
	if len(convos) == 0 {
		return "No conversations yet.", nil
	}

	var b strings.Builder
	b.WriteString("Recent conversations\n")
	for _, conv := range convos {
		title := conv.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "  %s  %s  (%d msgs)  %s\n",
			conv.ID, title, conv.MessageCount, conv.StartedAt.Format("2006-01-02 15:04"))
	}
	return b.String(), nil
}

// ToolsCommand lists registered tool descriptors with their governance.
type ToolsCommand struct{}

func (c *ToolsCommand) Name() string        { return "tools" }
func (c *ToolsCommand) Description() string { return "List registered tools" }
func (c *ToolsCommand) Usage() string       { return "/tools" }

func (c *ToolsCommand) Execute(ctx context.Context, _ []string, app AppInterface) (string, error) {
	descriptors, err := app.GetStore().ListToolDescriptors(ctx)
	if err != nil {
		return "", err
	}
	if len(descriptors) == 0 {
		return "No tools registered.", nil
	}

	var b strings.Builder
	b.WriteString("Registered tools\n")
	for _, d := range descriptors {
		confirm := "  "
		if d.RequiresConfirm {
			confirm = "🔒"
		}
		state := ""
		if !d.Enabled {
			state = " (disabled)"
		}
		fmt.Fprintf(&b, "  %s %-20s %-8s [%s]%s\n", confirm, d.Name, d.Risk, d.Category, state)
		if d.Description != "" {
			fmt.Fprintf(&b, "     %s\n", clip(d.Description, 60))
		}
	}
	return b.String(), nil
}

// SkillsCommand lists learned skills.
type SkillsCommand struct{}

func (c *SkillsCommand) Name() string        { return "skills" }
func (c *SkillsCommand) Description() string { return "List learned skills" }
func (c *SkillsCommand) Usage() string       { return "/skills" }

func (c *SkillsCommand) Execute(ctx context.Context, _ []string, app AppInterface) (string, error) {
	skills, err := app.GetStore().ListSkills(ctx, 20)
	if err != nil {
		return "", err
	}
	if len(skills) == 0 {
		return "No skills learned yet. Use /teach to add one.", nil
	}

	var b strings.Builder
	b.WriteString("Skills library\n")
	for _, sk := range skills {
		fmt.Fprintf(&b, "  %s  %s\n", sk.ID, sk.Name)
		if sk.Description != "" {
			fmt.Fprintf(&b, "     %s\n", sk.Description)
		}
		fmt.Fprintf(&b, "     Used %dx | %d succeeded\n", sk.Uses, sk.Successes)
	}
	return b.String(), nil
}

// TeachCommand registers a new named skill.
type TeachCommand struct{}

func (c *TeachCommand) Name() string        { return "teach" }
func (c *TeachCommand) Description() string { return "Teach a new skill" }
func (c *TeachCommand) Usage() string       { return "/teach <name> <description>" }

func (c *TeachCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}

	name := args[0]
	description := strings.Join(args[1:], " ")
	sk, err := app.GetStore().EnsureSkill(ctx, name, description)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Skill %q learned (%s).", sk.Name, sk.ID), nil
}
