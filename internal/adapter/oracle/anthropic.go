package oracle

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Anthropic calls the Messages API.
type Anthropic struct {
	client anthropic.Client
	opts   Options
	lim    *rate.Limiter
	logger *zap.Logger
}

func NewAnthropic(opts Options, logger *zap.Logger) *Anthropic {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	// Failed calls surface to the extractor, which drops the page; the
	// limiter already paces requests.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &Anthropic{
		client: anthropic.NewClient(reqOpts...),
		opts:   opts,
		lim:    newLimiter(opts.RequestsPerMinute),
		logger: logger,
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Complete(ctx context.Context, system, content string) (string, error) {
	ctx, cancel, err := withTimeout(ctx, a.lim, a.opts.Timeout)
	if err != nil {
		return "", err
	}
	defer cancel()

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.opts.Model),
		MaxTokens:   int64(a.opts.MaxTokens),
		Temperature: anthropic.Float(float64(a.opts.Temperature)),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(content)),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	a.logger.Debug("oracle call finished",
		zap.String("provider", a.Name()),
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return text.String(), nil
}
