package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"

	"aide/internal/config"
	"aide/internal/logging"
)

// OllamaClient talks to a local or remote Ollama server.
type OllamaClient struct {
	client     *api.Client
	model      string
	maxTokens  int32
	temp       float32
	maxRetries int
	retryDelay time.Duration
}

// authTransport injects a bearer token for remote Ollama servers.
type authTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(req)
}

// NewOllamaClient creates a new Ollama API client.
func NewOllamaClient(cfg *config.Config) (*OllamaClient, error) {
	rawURL := cfg.API.OllamaBaseURL
	if rawURL == "" {
		rawURL = "http://localhost:11434"
	}

	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	if baseURL.Scheme == "http" {
		host := baseURL.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			logging.Warn("Ollama connection uses unencrypted HTTP to remote host", "host", host)
		}
	}

	timeout := cfg.API.Retry.HTTPTimeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	if cfg.API.OllamaKey != "" {
		httpClient.Transport = &authTransport{base: http.DefaultTransport, apiKey: cfg.API.OllamaKey}
	}

	maxRetries := cfg.API.Retry.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	retryDelay := cfg.API.Retry.RetryDelay
	if retryDelay == 0 {
		retryDelay = 1 * time.Second
	}

	return &OllamaClient{
		client:     api.NewClient(baseURL, httpClient),
		model:      cfg.Model.Name,
		maxTokens:  cfg.Model.MaxOutputTokens,
		temp:       cfg.Model.Temperature,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

// ModelName returns the configured model identifier.
func (c *OllamaClient) ModelName() string {
	return c.model
}

// Close releases the client.
func (c *OllamaClient) Close() error {
	return nil
}

// Healthcheck verifies the server is reachable.
func (c *OllamaClient) Healthcheck(ctx context.Context) error {
	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("Ollama server unreachable: %w", err)
	}
	return nil
}

// Send issues one chat call with retry on transient failures.
func (c *OllamaClient) Send(ctx context.Context, system string, history []*genai.Content, tools []*genai.Tool) (*Response, error) {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: c.convertHistory(system, history),
		Stream:   Ptr(false),
		Options: map[string]any{
			"num_predict": c.maxTokens,
		},
	}
	if c.temp > 0 {
		req.Options["temperature"] = c.temp
	}
	if len(tools) > 0 {
		req.Tools = convertTools(tools)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.retryDelay, attempt-1, 30*time.Second)
			logging.Info("retrying Ollama request", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.chat(ctx, req)
		if err != nil {
			lastErr = err
			if isRetryableError(err) {
				continue
			}
			return nil, fmt.Errorf("Ollama request failed: %w", err)
		}
		return resp, nil
	}

	return nil, fmt.Errorf("Ollama request failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *OllamaClient) chat(ctx context.Context, req *api.ChatRequest) (*Response, error) {
	out := &Response{}
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.Text += resp.Message.Content
		for i, tc := range resp.Message.ToolCalls {
			out.FunctionCalls = append(out.FunctionCalls, toGenaiCall(tc, len(out.FunctionCalls)+i))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// convertHistory maps genai contents to Ollama chat messages. Function
// responses become tool-role messages; function calls ride on the
// assistant message that requested them.
func (c *OllamaClient) convertHistory(system string, history []*genai.Content) []api.Message {
	messages := make([]api.Message, 0, len(history)+1)
	if system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}

	for _, content := range history {
		if content == nil {
			continue
		}

		role := string(content.Role)
		switch content.Role {
		case genai.RoleUser:
			role = "user"
		case genai.RoleModel:
			role = "assistant"
		}

		var textParts []string
		var toolCalls []api.ToolCall
		var toolResults []api.Message

		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				textParts = append(textParts, part.Text)
			}
			if part.FunctionCall != nil {
				toolCalls = append(toolCalls, toOllamaCall(part.FunctionCall))
			}
			if part.FunctionResponse != nil {
				toolResults = append(toolResults, api.Message{
					Role:       "tool",
					Content:    functionResponseText(part.FunctionResponse),
					ToolName:   part.FunctionResponse.Name,
					ToolCallID: part.FunctionResponse.ID,
				})
			}
		}

		if len(textParts) > 0 || len(toolCalls) > 0 {
			messages = append(messages, api.Message{
				Role:      role,
				Content:   strings.Join(textParts, "\n"),
				ToolCalls: toolCalls,
			})
		}
		messages = append(messages, toolResults...)
	}

	return messages
}

func functionResponseText(fr *genai.FunctionResponse) string {
	if fr.Response == nil {
		return "Operation completed"
	}
	if val, ok := fr.Response["content"].(string); ok && val != "" {
		return val
	}
	if errStr, ok := fr.Response["error"].(string); ok && errStr != "" {
		return "Error: " + errStr
	}
	if data, err := json.Marshal(fr.Response); err == nil {
		return string(data)
	}
	return "Operation completed"
}

// convertTools maps genai tool declarations to the Ollama tool format.
func convertTools(tools []*genai.Tool) []api.Tool {
	var out []api.Tool

	for _, tool := range tools {
		for _, decl := range tool.FunctionDeclarations {
			params := api.ToolFunctionParameters{
				Type:       "object",
				Properties: api.NewToolPropertiesMap(),
			}

			if decl.Parameters != nil {
				params.Required = decl.Parameters.Required
				for name, propSchema := range decl.Parameters.Properties {
					prop := api.ToolProperty{Description: propSchema.Description}
					if propSchema.Type != "" {
						prop.Type = api.PropertyType{strings.ToLower(string(propSchema.Type))}
					}
					if len(propSchema.Enum) > 0 {
						enumVals := make([]any, len(propSchema.Enum))
						for i, v := range propSchema.Enum {
							enumVals[i] = v
						}
						prop.Enum = enumVals
					}
					params.Properties.Set(name, prop)
				}
			}

			out = append(out, api.Tool{
				Type: "function",
				Function: api.ToolFunction{
					Name:        decl.Name,
					Description: decl.Description,
					Parameters:  params,
				},
			})
		}
	}

	return out
}

func toGenaiCall(tc api.ToolCall, index int) *genai.FunctionCall {
	id := tc.ID
	if id == "" {
		id = fmt.Sprintf("call_%d", index)
	}
	return &genai.FunctionCall{
		ID:   id,
		Name: tc.Function.Name,
		Args: tc.Function.Arguments.ToMap(),
	}
}

func toOllamaCall(fc *genai.FunctionCall) api.ToolCall {
	args := api.NewToolCallFunctionArguments()
	for k, v := range fc.Args {
		args.Set(k, v)
	}
	return api.ToolCall{
		ID: fc.ID,
		Function: api.ToolCallFunction{
			Name:      fc.Name,
			Arguments: args,
		},
	}
}
