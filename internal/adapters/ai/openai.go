package ai

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

// OpenAINarrator generates narratives with the chat completions API
type OpenAINarrator struct {
	client    openai.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	log       *logger.Logger
}

var _ Narrator = (*OpenAINarrator)(nil)

func NewOpenAINarrator(cfg config.AIConfig, opts ...option.RequestOption) (*OpenAINarrator, error) {
	if cfg.OpenAIKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "openai API key is required")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}, opts...)

	return &OpenAINarrator{
		client:    openai.NewClient(opts...),
		model:     cfg.OpenAIModel,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		log:       logger.Get().With("component", "openai_narrator", "model", cfg.OpenAIModel),
	}, nil
}

func (n *OpenAINarrator) GenerateNarrative(ctx context.Context, nc NarrativeContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	resp, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(n.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(nc)),
		},
		MaxCompletionTokens: openai.Int(n.maxTokens),
	})
	metrics.RecordProviderCall("openai", "chat", time.Since(start), err)
	if err != nil {
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrap(errors.ErrExternal, "openai returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	n.log.Debugw("narrative generated", "symbol", nc.Symbol, "tokens", resp.Usage.TotalTokens)
	return text, nil
}
