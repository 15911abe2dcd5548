package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"stockwatch/internal/adapters/config"
	"stockwatch/pkg/errors"
)

// Purpose selects the tone and length of the generated text
type Purpose string

const (
	PurposeReport     Purpose = "report"
	PurposeSmartAlert Purpose = "smart_alert"
)

// NarrativeContext is everything a narrator may mention. Callers own the numbers;
// narrators only phrase them.
type NarrativeContext struct {
	Purpose   Purpose
	Symbol    string
	Metrics   map[string]float64
	Signals   map[string]string
	Headlines []string
}

// Narrator turns structured results into prose. Output is opaque to callers.
type Narrator interface {
	GenerateNarrative(ctx context.Context, nc NarrativeContext) (string, error)
}

// New builds the narrator selected by cfg.Provider
func New(ctx context.Context, cfg config.AIConfig) (Narrator, error) {
	switch cfg.Provider {
	case config.AIProviderOpenAI:
		return NewOpenAINarrator(cfg)
	case config.AIProviderGemini:
		return NewGeminiNarrator(ctx, cfg)
	case config.AIProviderNone, "":
		return TemplateNarrator{}, nil
	default:
		return nil, errors.NewValidationError("AI_PROVIDER", "unknown provider", cfg.Provider)
	}
}

const systemPrompt = "You are a concise equity analyst. Use only the figures provided. " +
	"Do not invent numbers and do not give personalised financial advice."

// BuildPrompt renders the context as a stable, sorted fact sheet
func BuildPrompt(nc NarrativeContext) string {
	var b strings.Builder
	switch nc.Purpose {
	case PurposeSmartAlert:
		fmt.Fprintf(&b, "Write two sentences explaining why a price alert for %s fired.\n", nc.Symbol)
	default:
		fmt.Fprintf(&b, "Write a short analysis report (at most 150 words) for %s.\n", nc.Symbol)
	}

	if len(nc.Metrics) > 0 {
		b.WriteString("\nMetrics:\n")
		for _, k := range sortedKeys(nc.Metrics) {
			fmt.Fprintf(&b, "- %s: %.2f\n", k, nc.Metrics[k])
		}
	}
	if len(nc.Signals) > 0 {
		b.WriteString("\nSignals:\n")
		for _, k := range sortedKeys(nc.Signals) {
			fmt.Fprintf(&b, "- %s: %s\n", k, nc.Signals[k])
		}
	}
	if len(nc.Headlines) > 0 {
		b.WriteString("\nRecent headlines:\n")
		for _, h := range nc.Headlines {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
