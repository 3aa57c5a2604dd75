package tools

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"google.golang.org/genai"

	"aide/internal/config"
	"aide/internal/logging"
)

// OS control actions.
const (
	ActionOpenApp    = "open_app"
	ActionOpenURL    = "open_url"
	ActionNotify     = "notify"
	ActionScreenshot = "screenshot"
)

// OSControlTool drives desktop-level actions: launching applications,
// opening URLs, posting notifications. Every action is policy-gated.
type OSControlTool struct {
	cfg config.OSControlConfig

	// runCommand is swapped out in tests.
	runCommand func(ctx context.Context, name string, args ...string) error
}

// NewOSControlTool creates an OS control tool governed by the given policy.
func NewOSControlTool(cfg config.OSControlConfig) *OSControlTool {
	return &OSControlTool{
		cfg: cfg,
		runCommand: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

func (t *OSControlTool) Name() string {
	return "osctl"
}

func (t *OSControlTool) Description() string {
	return "Control the local machine: open applications, open URLs, post notifications, take screenshots"
}

func (t *OSControlTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"action": {
					Type:        genai.TypeString,
					Description: "Action to perform",
					Enum:        []string{ActionOpenApp, ActionOpenURL, ActionNotify, ActionScreenshot},
				},
				"app": {
					Type:        genai.TypeString,
					Description: "Application name (for open_app)",
				},
				"url": {
					Type:        genai.TypeString,
					Description: "URL to open (for open_url), http or https only",
				},
				"title": {
					Type:        genai.TypeString,
					Description: "Notification title (for notify)",
				},
				"message": {
					Type:        genai.TypeString,
					Description: "Notification body (for notify)",
				},
				"path": {
					Type:        genai.TypeString,
					Description: "Output file path (for screenshot)",
				},
			},
			Required: []string{"action"},
		},
	}
}

func (t *OSControlTool) Validate(args map[string]any) error {
	action, ok := GetString(args, "action")
	if !ok {
		return NewValidationError("action", "action is required")
	}

	if !t.actionAllowed(action) {
		return NewValidationError("action", "action not permitted by policy: "+action)
	}

	switch action {
	case ActionOpenApp:
		app, ok := GetString(args, "app")
		if !ok || app == "" {
			return NewValidationError("app", "app is required for open_app")
		}
		if len(t.cfg.AllowedApps) > 0 && !t.appAllowed(app) {
			return NewValidationError("app", "application not in allowed list: "+app)
		}
	case ActionOpenURL:
		raw, ok := GetString(args, "url")
		if !ok || raw == "" {
			return NewValidationError("url", "url is required for open_url")
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return NewValidationError("url", "only http and https URLs can be opened")
		}
	case ActionNotify:
		if msg, ok := GetString(args, "message"); !ok || msg == "" {
			return NewValidationError("message", "message is required for notify")
		}
	case ActionScreenshot:
		// No required parameters.
	default:
		return NewValidationError("action", "invalid action: "+action)
	}

	return nil
}

func (t *OSControlTool) actionAllowed(action string) bool {
	for _, a := range t.cfg.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}

func (t *OSControlTool) appAllowed(app string) bool {
	for _, a := range t.cfg.AllowedApps {
		if strings.EqualFold(a, app) {
			return true
		}
	}
	return false
}

func (t *OSControlTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	if err := t.Validate(args); err != nil {
		return NewErrorResult(err.Error()), nil
	}

	action, _ := GetString(args, "action")
	logging.Debug("os control action", "action", action, "os", runtime.GOOS)

	switch action {
	case ActionOpenApp:
		return t.openApp(ctx, args)
	case ActionOpenURL:
		return t.openURL(ctx, args)
	case ActionNotify:
		return t.notify(ctx, args)
	case ActionScreenshot:
		return t.screenshot(ctx, args)
	default:
		return NewErrorResult("invalid action: " + action), nil
	}
}

func (t *OSControlTool) openApp(ctx context.Context, args map[string]any) (ToolResult, error) {
	app, _ := GetString(args, "app")

	switch runtime.GOOS {
	case "darwin":
		if err := t.runCommand(ctx, "open", "-a", app); err != nil {
			return NewErrorResult(fmt.Sprintf("opening %s: %v", app, err)), nil
		}
	case "linux":
		if err := t.runCommand(ctx, "gtk-launch", app); err != nil {
			return NewErrorResult(fmt.Sprintf("opening %s: %v", app, err)), nil
		}
	default:
		return NewErrorResult("open_app is not supported on " + runtime.GOOS), nil
	}

	return NewSuccessResult("Opened " + app), nil
}

func (t *OSControlTool) openURL(ctx context.Context, args map[string]any) (ToolResult, error) {
	raw, _ := GetString(args, "url")

	var err error
	switch runtime.GOOS {
	case "darwin":
		err = t.runCommand(ctx, "open", raw)
	case "linux":
		err = t.runCommand(ctx, "xdg-open", raw)
	default:
		return NewErrorResult("open_url is not supported on " + runtime.GOOS), nil
	}
	if err != nil {
		return NewErrorResult(fmt.Sprintf("opening URL: %v", err)), nil
	}

	return NewSuccessResult("Opened " + raw), nil
}

func (t *OSControlTool) notify(ctx context.Context, args map[string]any) (ToolResult, error) {
	title := GetStringDefault(args, "title", "aide")
	message, _ := GetString(args, "message")

	var err error
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		err = t.runCommand(ctx, "osascript", "-e", script)
	case "linux":
		err = t.runCommand(ctx, "notify-send", title, message)
	default:
		return NewErrorResult("notify is not supported on " + runtime.GOOS), nil
	}
	if err != nil {
		return NewErrorResult(fmt.Sprintf("sending notification: %v", err)), nil
	}

	return NewSuccessResult("Notification sent"), nil
}

func (t *OSControlTool) screenshot(ctx context.Context, args map[string]any) (ToolResult, error) {
	path := GetStringDefault(args, "path", "/tmp/aide-screenshot.png")

	var err error
	switch runtime.GOOS {
	case "darwin":
		err = t.runCommand(ctx, "screencapture", "-x", path)
	case "linux":
		err = t.runCommand(ctx, "import", "-window", "root", path)
	default:
		return NewErrorResult("screenshot is not supported on " + runtime.GOOS), nil
	}
	if err != nil {
		return NewErrorResult(fmt.Sprintf("taking screenshot: %v", err)), nil
	}

	return NewSuccessResultWithData("Screenshot saved to "+path, map[string]any{"path": path}), nil
}
