package router

import (
	"context"

	"aide/internal/logging"
	"aide/internal/store"
	"aide/internal/tools"
)

// Canonical governance keys. Every tool invocation resolves to exactly one
// of these (or to an auto-registered key for tools nobody declared).
const (
	KeyShell        = "shell"
	KeyOpenApp      = "open_app"
	KeyOpenURL      = "open_url"
	KeyOSControl    = "os_control"
	KeyMemoryWrite  = "memory_write"
	KeyMemoryQuery  = "memory_query"
	KeyMemoryPin    = "memory_pin"
	KeyMemoryForget = "memory_forget"
	KeyNotes        = "notes"
	KeyQueryRender  = "query_render"
)

// osctlKeys maps osctl actions to governance keys. Actions outside the
// table fall back to the os_control family key.
var osctlKeys = map[string]string{
	tools.ActionOpenApp: KeyOpenApp,
	tools.ActionOpenURL: KeyOpenURL,
}

// memoryKeys maps memory tool actions to governance keys. Read-ish actions
// outside the table fall back to memory_query.
var memoryKeys = map[string]string{
	tools.MemoryActionWrite:  KeyMemoryWrite,
	tools.MemoryActionUpdate: KeyMemoryWrite,
	tools.MemoryActionPin:    KeyMemoryPin,
	tools.MemoryActionDelete: KeyMemoryForget,
}

// GovernanceKey resolves a model-facing tool name plus its arguments to the
// canonical governance key. Unrecognized tool names pass through unchanged
// and get auto-registered at descriptor lookup.
func GovernanceKey(toolName string, args map[string]any) string {
	action, _ := tools.GetString(args, "action")

	switch toolName {
	case "shell":
		return KeyShell
	case "osctl":
		if key, ok := osctlKeys[action]; ok {
			return key
		}
		return KeyOSControl
	case "memory":
		if key, ok := memoryKeys[action]; ok {
			return key
		}
		return KeyMemoryQuery
	case "notes":
		return KeyNotes
	case "query":
		return KeyQueryRender
	default:
		return toolName
	}
}

// Router resolves tool invocations to stored governance descriptors.
type Router struct {
	store *store.SQLiteStore
}

// NewRouter creates a router over the store.
func NewRouter(s *store.SQLiteStore) *Router {
	return &Router{store: s}
}

// Resolve maps a tool invocation to its descriptor. Keys nobody seeded are
// auto-registered with the most restrictive defaults so a descriptor (and
// its audit foreign key) always exists.
func (r *Router) Resolve(ctx context.Context, toolName string, args map[string]any) (*store.ToolDescriptor, error) {
	key := GovernanceKey(toolName, args)

	desc, err := r.store.GetToolDescriptor(ctx, key)
	if err == nil {
		return desc, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}

	logging.Warn("auto-registering unknown tool key", "key", key, "tool", toolName)
	return r.store.EnsureToolDescriptor(ctx, &store.ToolDescriptor{
		Name:            key,
		Category:        "system",
		Description:     "Auto-registered on first use",
		Risk:            store.RiskHigh,
		RequiresConfirm: true,
		Enabled:         true,
	})
}
