package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"aide/internal/config"
	"aide/internal/logging"
)

// GeminiClient wraps the Google Gemini API.
type GeminiClient struct {
	client     *genai.Client
	model      string
	genConfig  *genai.GenerateContentConfig
	maxRetries int
	retryDelay time.Duration
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	if cfg.API.GeminiKey == "" {
		return nil, fmt.Errorf("Gemini API key required: set AIDE_API_KEY or api.gemini_key in config")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.API.GeminiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     Ptr(cfg.Model.Temperature),
		MaxOutputTokens: cfg.Model.MaxOutputTokens,
	}

	maxRetries := cfg.API.Retry.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	retryDelay := cfg.API.Retry.RetryDelay
	if retryDelay == 0 {
		retryDelay = 1 * time.Second
	}

	return &GeminiClient{
		client:     client,
		model:      cfg.Model.Name,
		genConfig:  genConfig,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

// Raw exposes the underlying genai client, used for the embedding API.
func (c *GeminiClient) Raw() *genai.Client {
	return c.client
}

// ModelName returns the configured model identifier.
func (c *GeminiClient) ModelName() string {
	return c.model
}

// Close releases the client. The genai client holds no persistent
// connection state that needs closing.
func (c *GeminiClient) Close() error {
	return nil
}

// Send issues one model call with retry on transient failures.
func (c *GeminiClient) Send(ctx context.Context, system string, history []*genai.Content, tools []*genai.Tool) (*Response, error) {
	cfg := *c.genConfig
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(system)},
		}
	}
	if len(tools) > 0 {
		cfg.Tools = tools
	}

	contents := sanitizeContents(history)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.retryDelay, attempt-1, 30*time.Second)
			logging.Info("retrying Gemini request", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &cfg)
		if err != nil {
			lastErr = err
			if isRetryableError(err) {
				continue
			}
			return nil, fmt.Errorf("Gemini request failed: %w", err)
		}
		return extractResponse(resp), nil
	}

	return nil, fmt.Errorf("Gemini request failed after %d retries: %w", c.maxRetries, lastErr)
}

// extractResponse flattens the first candidate into text plus tool calls.
func extractResponse(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			out.FunctionCalls = append(out.FunctionCalls, part.FunctionCall)
		}
	}
	return out
}

// sanitizeContents validates and fixes contents before sending to the API:
// each Part must carry exactly one of Text, FunctionCall, or FunctionResponse,
// and each Content must have at least one part.
func sanitizeContents(contents []*genai.Content) []*genai.Content {
	var result []*genai.Content

	for _, content := range contents {
		if content == nil {
			continue
		}

		var validParts []*genai.Part
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.FunctionCall != nil || part.FunctionResponse != nil || part.Text != "" {
				validParts = append(validParts, part)
			}
		}

		if len(validParts) == 0 {
			validParts = []*genai.Part{genai.NewPartFromText(" ")}
		}

		result = append(result, &genai.Content{
			Role:  content.Role,
			Parts: validParts,
		})
	}

	if len(result) == 0 {
		result = []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(" ")},
		}}
	}

	return result
}
