package commands

import (
	"context"
	"fmt"
	"strings"
)

// SetCommand sets a preference. An empty value clears the key.
type SetCommand struct{}

func (c *SetCommand) Name() string        { return "set" }
func (c *SetCommand) Description() string { return "Set a preference" }
func (c *SetCommand) Usage() string       { return "/set <key> <value>" }

func (c *SetCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: %s", c.Usage())
	}

	key := args[0]
	value := strings.Join(args[1:], " ")
	if err := app.GetStore().SetPreference(ctx, key, value); err != nil {
		return "", err
	}
	return fmt.Sprintf("Preference %q set.", key), nil
}

// PrefsCommand lists all preferences.
type PrefsCommand struct{}

func (c *PrefsCommand) Name() string        { return "prefs" }
func (c *PrefsCommand) Description() string { return "View preferences" }
func (c *PrefsCommand) Usage() string       { return "/prefs" }

func (c *PrefsCommand) Execute(ctx context.Context, _ []string, app AppInterface) (string, error) {
	prefs, err := app.GetStore().ListPreferences(ctx)
	if err != nil {
		return "", err
	}
	if len(prefs) == 0 {
		return "No preferences set. Use /set <key> <value>", nil
	}

	var b strings.Builder
	b.WriteString("Preferences\n")
	for _, p := range prefs {
		fmt.Fprintf(&b, "  %s: %s\n", p.Key, p.Value)
	}
	return b.String(), nil
}
