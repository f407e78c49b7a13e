package oracle

import (
	"context"
	"errors"
	"math"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client *openai.Client
	opts   Options
	lim    *rate.Limiter
	logger *zap.Logger
}

func NewOpenAI(opts Options, logger *zap.Logger) *OpenAI {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
		lim:    newLimiter(opts.RequestsPerMinute),
		logger: logger,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, system, content string) (string, error) {
	ctx, cancel, err := withTimeout(ctx, o.lim, o.opts.Timeout)
	if err != nil {
		return "", err
	}
	defer cancel()

	temperature := o.opts.Temperature
	if temperature == 0 {
		// A zero value is omitted from the request and the server default applies.
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.opts.Model,
		Temperature: temperature,
		MaxTokens:   o.opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}

	o.logger.Debug("oracle call finished",
		zap.String("provider", o.Name()),
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
