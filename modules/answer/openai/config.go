package openai

import "time"

// Config holds the OpenAI-compatible backend settings.
type Config struct {
	// APIKey is the server-wide credential. A per-request bearer key
	// overrides it.
	APIKey string `yaml:"api_key"`

	// BaseURL optionally points at an OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url"`

	// Model is the chat model identifier.
	Model string `yaml:"model"`

	// SystemPrompt seeds every conversation.
	SystemPrompt string `yaml:"system_prompt"`

	// Timeout bounds each upstream request.
	Timeout time.Duration `yaml:"timeout"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = "你是一个智能天气助手，用简洁的中文回答天气相关的问题。"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}
