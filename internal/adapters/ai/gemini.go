package ai

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

// GeminiNarrator generates narratives with the Gemini API
type GeminiNarrator struct {
	client    *genai.Client
	model     string
	maxTokens int32
	timeout   time.Duration
	log       *logger.Logger
}

var _ Narrator = (*GeminiNarrator)(nil)

func NewGeminiNarrator(ctx context.Context, cfg config.AIConfig) (*GeminiNarrator, error) {
	if cfg.GeminiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}

	return &GeminiNarrator{
		client:    client,
		model:     cfg.GeminiModel,
		maxTokens: int32(cfg.MaxTokens),
		timeout:   cfg.Timeout,
		log:       logger.Get().With("component", "gemini_narrator", "model", cfg.GeminiModel),
	}, nil
}

func (n *GeminiNarrator) GenerateNarrative(ctx context.Context, nc NarrativeContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	resp, err := n.client.Models.GenerateContent(ctx, n.model, genai.Text(BuildPrompt(nc)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		MaxOutputTokens:   n.maxTokens,
	})
	metrics.RecordProviderCall("gemini", "generate_content", time.Since(start), err)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.Wrap(errors.ErrExternal, "gemini returned empty text")
	}
	n.log.Debugw("narrative generated", "symbol", nc.Symbol)
	return text, nil
}
