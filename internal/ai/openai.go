package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/circuitbreaker"
	apperrors "github.com/posentia/posentia/internal/errors"
)

const temperature = 0.7

var errEmptyCompletion = errors.New("empty completion")

// OpenAIConfig holds what the client needs from configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAIClient completes chats with the OpenAI chat completions API.
type OpenAIClient struct {
	client  openai.Client
	model   string
	breaker *circuitbreaker.Breaker
	logger  *zap.Logger
}

// NewOpenAIClient creates a client. The SDK's own retries are disabled;
// one failed attempt goes straight to the caller's fallback.
func NewOpenAIClient(cfg OpenAIConfig, breaker *circuitbreaker.Breaker, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	if breaker == nil {
		breaker = circuitbreaker.New("openai", circuitbreaker.DefaultConfig(), logger)
	}
	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		model:   model,
		breaker: breaker,
		logger:  logger,
	}
}

// Complete sends the transcript with the system prompt and returns the first
// choice. An empty completion is an error so the caller falls back.
func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    buildMessages(req),
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(MaxTokens(req.Channel)),
	}

	resp, err := circuitbreaker.Call(ctx, c.breaker, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return c.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return "", apperrors.ExternalServiceError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.ExternalServiceError("openai", errEmptyCompletion)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", apperrors.ExternalServiceError("openai", errEmptyCompletion)
	}

	c.logger.Debug("chat completion",
		zap.String("model", resp.Model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return content, nil
}

func buildMessages(req ChatRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	msgs = append(msgs, openai.SystemMessage(SystemPrompt(req)))
	for _, m := range req.Messages {
		if m.FromUser() {
			msgs = append(msgs, openai.UserMessage(m.Content))
		} else {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		}
	}
	return msgs
}
