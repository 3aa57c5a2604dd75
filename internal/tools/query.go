package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"aide/internal/config"
)

// Query tool actions.
const (
	QueryActionList     = "list"
	QueryActionRender   = "render"
	QueryActionScaffold = "scaffold"
)

// QueryTool renders named query templates from config. It never talks to
// external systems itself; it produces the text a human would paste into
// one, or a connector scaffold describing how a live integration would look.
type QueryTool struct {
	cfg config.QueryConfig
}

// NewQueryTool creates a query tool over the configured templates.
func NewQueryTool(cfg config.QueryConfig) *QueryTool {
	return &QueryTool{cfg: cfg}
}

func (t *QueryTool) Name() string {
	return "query"
}

func (t *QueryTool) Description() string {
	return "Render a named query template with parameters, list available templates, or scaffold a REST connector"
}

func (t *QueryTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"action": {
					Type:        genai.TypeString,
					Description: "Action to perform",
					Enum:        []string{QueryActionList, QueryActionRender, QueryActionScaffold},
				},
				"template": {
					Type:        genai.TypeString,
					Description: "Template name (for render)",
				},
				"params": {
					Type:        genai.TypeObject,
					Description: "Template parameter values keyed by name (for render)",
				},
				"service": {
					Type:        genai.TypeString,
					Description: "Service name to scaffold a connector for (for scaffold)",
				},
				"base_url": {
					Type:        genai.TypeString,
					Description: "Base URL of the service API (for scaffold)",
				},
			},
			Required: []string{"action"},
		},
	}
}

func (t *QueryTool) Validate(args map[string]any) error {
	action, ok := GetString(args, "action")
	if !ok {
		return NewValidationError("action", "action is required")
	}

	switch action {
	case QueryActionList:
	case QueryActionRender:
		name, ok := GetString(args, "template")
		if !ok || name == "" {
			return NewValidationError("template", "template is required for render")
		}
		if _, exists := t.cfg.Templates[name]; !exists {
			return NewValidationError("template", "unknown template: "+name)
		}
	case QueryActionScaffold:
		if svc, ok := GetString(args, "service"); !ok || svc == "" {
			return NewValidationError("service", "service is required for scaffold")
		}
	default:
		return NewValidationError("action", "invalid action: "+action)
	}

	return nil
}

func (t *QueryTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	if err := t.Validate(args); err != nil {
		return NewErrorResult(err.Error()), nil
	}

	action, _ := GetString(args, "action")
	switch action {
	case QueryActionList:
		return t.list(), nil
	case QueryActionRender:
		return t.render(args), nil
	case QueryActionScaffold:
		return t.scaffold(args), nil
	default:
		return NewErrorResult("invalid action: " + action), nil
	}
}

func (t *QueryTool) list() ToolResult {
	if len(t.cfg.Templates) == 0 {
		return NewSuccessResult("No query templates configured.")
	}

	names := make([]string, 0, len(t.cfg.Templates))
	for name := range t.cfg.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Available query templates:\n")
	for _, name := range names {
		tpl := t.cfg.Templates[name]
		fmt.Fprintf(&sb, "- %s: %s", name, tpl.Description)
		if len(tpl.Params) > 0 {
			fmt.Fprintf(&sb, " (params: %s)", strings.Join(tpl.Params, ", "))
		}
		sb.WriteString("\n")
	}
	return NewSuccessResult(sb.String())
}

func (t *QueryTool) render(args map[string]any) ToolResult {
	name, _ := GetString(args, "template")
	tpl := t.cfg.Templates[name]

	params, _ := args["params"].(map[string]any)

	var missing []string
	rendered := tpl.Text
	for _, p := range tpl.Params {
		val, ok := params[p]
		if !ok {
			missing = append(missing, p)
			continue
		}
		rendered = strings.ReplaceAll(rendered, "{"+p+"}", fmt.Sprint(val))
	}
	if len(missing) > 0 {
		return NewErrorResult("missing parameters: " + strings.Join(missing, ", "))
	}

	return NewSuccessResultWithData(rendered, map[string]any{"template": name})
}

// scaffold emits a JSON connector description. Live connectors are out of
// scope; the scaffold documents the shape one would implement.
func (t *QueryTool) scaffold(args map[string]any) ToolResult {
	service, _ := GetString(args, "service")
	baseURL := GetStringDefault(args, "base_url", "https://api.example.com")

	scaffold := map[string]any{
		"service":  service,
		"base_url": baseURL,
		"auth": map[string]any{
			"type":   "bearer",
			"env":    strings.ToUpper(service) + "_TOKEN",
			"header": "Authorization",
		},
		"endpoints": []map[string]any{
			{"name": "search", "method": "GET", "path": "/v1/search", "params": []string{"q", "limit"}},
			{"name": "get", "method": "GET", "path": "/v1/items/{id}", "params": []string{"id"}},
		},
	}

	out, err := json.MarshalIndent(scaffold, "", "  ")
	if err != nil {
		return NewErrorResult("building scaffold: " + err.Error())
	}
	return NewSuccessResultWithData(string(out), scaffold)
}
