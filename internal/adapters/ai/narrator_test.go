package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/adapters/config"
	"stockwatch/pkg/errors"
)

func sampleContext() NarrativeContext {
	return NarrativeContext{
		Purpose:   PurposeSmartAlert,
		Symbol:    "AAPL",
		Metrics:   map[string]float64{"week_change": -12.346, "consecutive_drops": 3},
		Signals:   map[string]string{"heuristic": "consecutive_declines"},
		Headlines: []string{"Apple slides on supply worries"},
	}
}

func TestBuildPrompt_Stable(t *testing.T) {
	p := BuildPrompt(sampleContext())
	assert.Contains(t, p, "alert for AAPL fired")
	assert.Contains(t, p, "- consecutive_drops: 3.00\n- week_change: -12.35\n")
	assert.Contains(t, p, "- Apple slides on supply worries")
	assert.Equal(t, p, BuildPrompt(sampleContext()))

	report := BuildPrompt(NarrativeContext{Symbol: "MSFT"})
	assert.Contains(t, report, "analysis report")
	assert.NotContains(t, report, "Metrics:")
}

func TestTemplateNarrator(t *testing.T) {
	text, err := TemplateNarrator{}.GenerateNarrative(context.Background(), sampleContext())
	require.NoError(t, err)
	assert.Equal(t, "AAPL: heuristic consecutive_declines, consecutive drops 3.00, week change -12.35", text)

	empty, err := TemplateNarrator{}.GenerateNarrative(context.Background(), NarrativeContext{Symbol: "X"})
	require.NoError(t, err)
	assert.Equal(t, "X: no notable signals", empty)
}

func TestNew(t *testing.T) {
	n, err := New(context.Background(), config.AIConfig{Provider: config.AIProviderNone})
	require.NoError(t, err)
	assert.IsType(t, TemplateNarrator{}, n)

	_, err = New(context.Background(), config.AIConfig{Provider: "llama"})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = New(context.Background(), config.AIConfig{Provider: config.AIProviderOpenAI})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestOpenAINarrator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  AAPL fell three days in a row.  "}}],
			"usage":{"prompt_tokens":10,"completion_tokens":8,"total_tokens":18}}`))
	}))
	defer srv.Close()

	n, err := NewOpenAINarrator(config.AIConfig{
		OpenAIKey:   "sk-test",
		OpenAIModel: "gpt-4o-mini",
		MaxTokens:   100,
		Timeout:     5 * time.Second,
	}, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	text, err := n.GenerateNarrative(context.Background(), sampleContext())
	require.NoError(t, err)
	assert.Equal(t, "AAPL fell three days in a row.", text)
}
