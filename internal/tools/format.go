package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Summary renders a human-readable description of a tool call for approval
// prompts. Shell calls surface the literal command; everything else gets a
// truncated argument dump.
func Summary(name string, args map[string]any) string {
	switch name {
	case "shell":
		if cmd, ok := GetString(args, "command"); ok {
			return fmt.Sprintf("Run shell command: %s", cmd)
		}
	case "osctl":
		action, _ := GetString(args, "action")
		switch action {
		case ActionOpenApp:
			app, _ := GetString(args, "app")
			return fmt.Sprintf("Open application: %s", app)
		case ActionOpenURL:
			u, _ := GetString(args, "url")
			return fmt.Sprintf("Open URL: %s", u)
		}
	case "memory":
		if action, ok := GetString(args, "action"); ok {
			return fmt.Sprintf("Memory %s: %s", action, compactArgs(args, "action"))
		}
	}
	return fmt.Sprintf("Run %s with %s", name, compactArgs(args))
}

// FormatResult renders a tool result for the transcript and the user.
func FormatResult(name string, result ToolResult) string {
	if !result.Success {
		return fmt.Sprintf("%s error: %s", name, result.Error)
	}
	if result.Content != "" {
		return result.Content
	}
	if result.Data != nil {
		if data, err := json.Marshal(result.Data); err == nil {
			return string(data)
		}
	}
	return "Done."
}

// compactArgs renders args as "k=v" pairs, sorted, truncated, with the
// listed keys omitted.
func compactArgs(args map[string]any, omit ...string) string {
	skip := make(map[string]bool, len(omit))
	for _, k := range omit {
		skip[k] = true
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}

	s := strings.Join(parts, " ")
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	if s == "" {
		s = "(no arguments)"
	}
	return s
}
