package tools

import (
	"aide/internal/config"
	"aide/internal/semantic"
	"aide/internal/store"
)

// DefaultRegistry creates a registry with the standard assistant tools.
// The semantic index may be nil when embeddings are disabled.
func DefaultRegistry(cfg *config.Config, s *store.SQLiteStore, index *semantic.Index) *Registry {
	r := NewRegistry()

	r.MustRegister(NewShellTool(cfg.Shell))
	r.MustRegister(NewOSControlTool(cfg.OSControl))
	r.MustRegister(NewQueryTool(cfg.Query))
	r.MustRegister(NewNotesTool(s))
	r.MustRegister(NewMemoryTool(s, index))

	return r
}
