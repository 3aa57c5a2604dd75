package config

import "time"

// Config represents the main application configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Model     ModelConfig     `yaml:"model"`
	Assistant AssistantConfig `yaml:"assistant"`
	Shell     ShellConfig     `yaml:"shell"`
	OSControl OSControlConfig `yaml:"os_control"`
	Query     QueryConfig     `yaml:"query"`
	Storage   StorageConfig   `yaml:"storage"`
	Semantic  SemanticConfig  `yaml:"semantic"`
	Tools     ToolsConfig     `yaml:"tools"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Runtime version information
	Version string `yaml:"-"`
}

// APIConfig holds API-related settings.
type APIConfig struct {
	GeminiKey string `yaml:"gemini_key,omitempty"`

	// Ollama server URL (default: http://localhost:11434)
	OllamaBaseURL string `yaml:"ollama_base_url,omitempty"`
	OllamaKey     string `yaml:"ollama_key,omitempty"` // Optional, for remote Ollama servers with auth

	// Active provider: gemini or ollama (default: gemini)
	ActiveProvider string `yaml:"active_provider"`

	Retry RetryConfig `yaml:"retry"`
}

// GetActiveProvider returns the active provider name.
func (c *APIConfig) GetActiveProvider() string {
	if c.ActiveProvider != "" {
		return c.ActiveProvider
	}
	return "gemini"
}

// RetryConfig holds retry settings for API calls.
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`  // Maximum number of retry attempts (default: 3)
	RetryDelay  time.Duration `yaml:"retry_delay"`  // Initial delay between retries (default: 1s)
	HTTPTimeout time.Duration `yaml:"http_timeout"` // HTTP request timeout (default: 120s)
}

// ModelConfig holds model-related settings.
type ModelConfig struct {
	Name            string  `yaml:"name"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// AssistantConfig holds assistant behavior settings.
type AssistantConfig struct {
	// Base instruction prepended to every assembled context.
	SystemPrompt string `yaml:"system_prompt"`

	// User identifier recorded on conversations and approvals.
	User string `yaml:"user"`
}

// ShellConfig holds shell capability settings.
type ShellConfig struct {
	// First-token binaries the shell tool may run. Empty means nothing runs.
	Allowlist []string `yaml:"allowlist"`

	// Substrings that block a command outright, even when allowlisted.
	BlockedPatterns []string `yaml:"blocked_patterns"`

	Timeout        time.Duration `yaml:"timeout"`
	MaxOutputChars int           `yaml:"max_output_chars"`
}

// OSControlConfig holds OS automation settings.
type OSControlConfig struct {
	// Actions the os tool may perform: open_app, open_url, notify, screenshot.
	AllowedActions []string `yaml:"allowed_actions"`

	// Apps the open_app action may launch. Empty means any.
	AllowedApps []string `yaml:"allowed_apps"`
}

// QueryConfig holds query template settings.
type QueryConfig struct {
	Templates map[string]QueryTemplate `yaml:"templates"`
}

// QueryTemplate is a named, parameterized query the model can render.
type QueryTemplate struct {
	Description string   `yaml:"description"`
	Text        string   `yaml:"text"`
	Params      []string `yaml:"params"`
}

// StorageConfig holds durable store settings.
type StorageConfig struct {
	// Path to the SQLite database. Empty uses <config dir>/aide.db.
	Path string `yaml:"path"`
}

// SemanticConfig holds semantic recall settings.
type SemanticConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Model    string  `yaml:"model"`     // Embedding model (e.g., text-embedding-004)
	TopK     int     `yaml:"top_k"`     // Results per search
	MinScore float32 `yaml:"min_score"` // Relevance threshold
}

// ToolsConfig holds governance overrides for tool descriptors.
type ToolsConfig struct {
	// Per-governance-key overrides applied to the seeded descriptors.
	Rules map[string]ToolRule `yaml:"rules"`
}

// ToolRule overrides governance fields for one descriptor.
type ToolRule struct {
	Risk    string `yaml:"risk,omitempty"` // low, medium, high
	Confirm *bool  `yaml:"confirm,omitempty"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // Logging level: debug, info, warn, error
}

// DefaultSystemPrompt is the base instruction used when none is configured.
const DefaultSystemPrompt = `You are Aide, a personal assistant with access to tools.
Use tools when the user asks for an action; answer directly otherwise.
Be concise. Never invent tool output.`

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			ActiveProvider: "gemini",
			Retry: RetryConfig{
				MaxRetries:  3,
				RetryDelay:  1 * time.Second,
				HTTPTimeout: 120 * time.Second,
			},
		},
		Model: ModelConfig{
			Name:            "gemini-3-flash-preview",
			Temperature:     0.7,
			MaxOutputTokens: 8192,
		},
		Assistant: AssistantConfig{
			SystemPrompt: DefaultSystemPrompt,
			User:         "default",
		},
		Shell: ShellConfig{
			Allowlist: []string{
				"ls", "cat", "head", "tail", "grep", "find", "wc",
				"date", "whoami", "uname", "df", "du", "ps", "uptime",
				"echo", "which", "pwd",
			},
			BlockedPatterns: []string{
				"rm -rf", "mkfs", "> /dev/", "dd if=", ":(){",
			},
			Timeout:        30 * time.Second,
			MaxOutputChars: 4000,
		},
		OSControl: OSControlConfig{
			AllowedActions: []string{"open_app", "open_url", "notify"},
		},
		Query: QueryConfig{
			Templates: map[string]QueryTemplate{},
		},
		Semantic: SemanticConfig{
			Enabled:  false, // Requires API calls
			Model:    "text-embedding-004",
			TopK:     3,
			MinScore: 0.7,
		},
		Tools: ToolsConfig{
			Rules: map[string]ToolRule{},
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}
