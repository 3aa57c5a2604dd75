package client

import (
	"context"
	"fmt"

	"aide/internal/config"
)

// New creates the client for the configured provider.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch provider := cfg.API.GetActiveProvider(); provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	case "ollama":
		return NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q (expected gemini or ollama)", provider)
	}
}
