package ai

import (
	"context"
	"fmt"
	"strings"
)

// TemplateNarrator renders a deterministic summary without calling any model
type TemplateNarrator struct{}

var _ Narrator = TemplateNarrator{}

func (TemplateNarrator) GenerateNarrative(_ context.Context, nc NarrativeContext) (string, error) {
	var parts []string
	for _, k := range sortedKeys(nc.Signals) {
		parts = append(parts, fmt.Sprintf("%s %s", strings.ReplaceAll(k, "_", " "), nc.Signals[k]))
	}
	for _, k := range sortedKeys(nc.Metrics) {
		parts = append(parts, fmt.Sprintf("%s %.2f", strings.ReplaceAll(k, "_", " "), nc.Metrics[k]))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: no notable signals", nc.Symbol), nil
	}
	return fmt.Sprintf("%s: %s", nc.Symbol, strings.Join(parts, ", ")), nil
}
