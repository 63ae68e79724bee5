// Package openai implements the answer boundary against an
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/weathergate/weathergate/internal/answer"
)

// Answerer calls an OpenAI-compatible chat completions API.
type Answerer struct {
	config Config
	client openai.Client
	logger *slog.Logger
}

// Compile-time interface check.
var _ answer.Answerer = (*Answerer)(nil)

// New builds an Answerer from config. The client is usable without a
// server-wide key as long as every request carries its own.
func New(cfg Config, logger *slog.Logger) *Answerer {
	cfg.defaults()

	opts := []option.RequestOption{
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Answerer{
		config: cfg,
		client: openai.NewClient(opts...),
		logger: logger.With("component", "answer"),
	}
}

// Answer sends the query with its history to the chat completions endpoint.
func (a *Answerer) Answer(ctx context.Context, req answer.Request) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2*len(req.History)+2)
	messages = append(messages, openai.SystemMessage(a.config.SystemPrompt))
	for _, turn := range req.History {
		messages = append(messages,
			openai.UserMessage(turn.User),
			openai.AssistantMessage(turn.Assistant),
		)
	}
	messages = append(messages, openai.UserMessage(req.Query))

	var callOpts []option.RequestOption
	if req.APIKey != "" && req.APIKey != a.config.APIKey {
		callOpts = append(callOpts, option.WithAPIKey(req.APIKey))
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(a.config.Model),
		Messages: messages,
	}, callOpts...)
	if err != nil {
		return "", fmt.Errorf("openai: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty completion for model %s", a.config.Model)
	}

	a.logger.Debug("completion finished",
		"model", a.config.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return resp.Choices[0].Message.Content, nil
}
