package router

import (
	"context"
	"fmt"

	"aide/internal/config"
	"aide/internal/store"
)

// seedDescriptors are the built-in governance records. Risk and
// confirmation defaults follow the blast radius of each key: anything that
// touches the OS confirms, reads do not.
var seedDescriptors = []store.ToolDescriptor{
	{Name: KeyShell, Category: "system", Description: "Run an allowlisted shell command", Risk: store.RiskHigh, RequiresConfirm: true, Enabled: true},
	{Name: KeyOpenApp, Category: "os", Description: "Open a local application", Risk: store.RiskMedium, RequiresConfirm: true, Enabled: true},
	{Name: KeyOpenURL, Category: "os", Description: "Open a URL in the browser", Risk: store.RiskMedium, RequiresConfirm: true, Enabled: true},
	{Name: KeyOSControl, Category: "os", Description: "Other OS-level actions", Risk: store.RiskHigh, RequiresConfirm: true, Enabled: true},
	{Name: KeyMemoryWrite, Category: "memory", Description: "Save or update a memory item", Risk: store.RiskLow, RequiresConfirm: false, Enabled: true},
	{Name: KeyMemoryQuery, Category: "memory", Description: "Query stored memories", Risk: store.RiskLow, RequiresConfirm: false, Enabled: true},
	{Name: KeyMemoryPin, Category: "memory", Description: "Pin or unpin a memory item", Risk: store.RiskLow, RequiresConfirm: false, Enabled: true},
	{Name: KeyMemoryForget, Category: "memory", Description: "Delete a memory item", Risk: store.RiskMedium, RequiresConfirm: true, Enabled: true},
	{Name: KeyNotes, Category: "productivity", Description: "Quick note capture and lookup", Risk: store.RiskLow, RequiresConfirm: false, Enabled: true},
	{Name: KeyQueryRender, Category: "productivity", Description: "Render a configured query template", Risk: store.RiskLow, RequiresConfirm: false, Enabled: true},
}

// Seed ensures the built-in descriptors exist, then applies per-key
// governance overrides from config. Seeding never downgrades existing
// rows except through explicit overrides.
func Seed(ctx context.Context, s *store.SQLiteStore, cfg config.ToolsConfig) error {
	for i := range seedDescriptors {
		d := seedDescriptors[i]
		if _, err := s.EnsureToolDescriptor(ctx, &d); err != nil {
			return fmt.Errorf("seeding tool %s: %w", d.Name, err)
		}
	}

	for name, rule := range cfg.Rules {
		if err := s.UpdateToolGovernance(ctx, name, rule.Risk, rule.Confirm, rule.Enabled); err != nil {
			if err == store.ErrNotFound {
				// Overrides may target keys seeded by a future version;
				// create a restrictive descriptor and retry.
				if _, err := s.EnsureToolDescriptor(ctx, &store.ToolDescriptor{
					Name: name, Category: "system", Risk: store.RiskHigh,
					RequiresConfirm: true, Enabled: true,
				}); err != nil {
					return fmt.Errorf("creating overridden tool %s: %w", name, err)
				}
				if err := s.UpdateToolGovernance(ctx, name, rule.Risk, rule.Confirm, rule.Enabled); err != nil {
					return fmt.Errorf("applying override for %s: %w", name, err)
				}
				continue
			}
			return fmt.Errorf("applying override for %s: %w", name, err)
		}
	}

	return nil
}
