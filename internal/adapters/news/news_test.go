package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/domain/market_data"
	"stockwatch/pkg/errors"
)

func TestNewsAPI_RecentArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "AAPL stock", r.URL.Query().Get("q"))
		assert.Equal(t, "key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"Reuters"},"title":"Apple shares rise on strong iPhone demand","description":"","url":"https://x/1","publishedAt":"2026-03-01T10:00:00Z"},
			{"source":{"name":"Bloomberg"},"title":"","url":"https://x/2","publishedAt":"2026-03-01T09:00:00Z"},
			{"source":{"name":"CNBC"},"title":"Apple faces weak China sales, stock may drop","url":"https://x/3","publishedAt":"bogus"}
		]}`))
	}))
	defer srv.Close()

	n := NewNewsAPI(config.NewsConfig{APIKey: "key", BaseURL: srv.URL, Timeout: time.Second})
	fixed := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	articles, err := n.RecentArticles(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "Reuters", articles[0].Source)
	assert.Equal(t, market_data.SentimentPositive, articles[0].Sentiment)
	assert.Equal(t, 2026, articles[0].PublishedAt.Year())

	assert.Equal(t, market_data.SentimentNegative, articles[1].Sentiment)
	assert.Equal(t, fixed, articles[1].PublishedAt, "unparseable timestamps fall back to collection time")
}

func TestNewsAPI_NoKey(t *testing.T) {
	_, err := NewNewsAPI(config.NewsConfig{}).RecentArticles(context.Background(), "AAPL", 5)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestNewsAPI_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	}))
	defer srv.Close()

	n := NewNewsAPI(config.NewsConfig{APIKey: "bad", BaseURL: srv.URL, Timeout: time.Second})
	_, err := n.RecentArticles(context.Background(), "AAPL", 5)
	assert.True(t, errors.Is(err, errors.ErrExternal))
}

const listingHTML = `<html><body><ul>
<li class="stream-item"><a href="/news/one.html"><h3>Tesla deliveries surge to record</h3></a><p>Strong quarter.</p><div class="publishing">Reuters</div></li>
<li class="stream-item"><a href="/news/one.html"><h3>Duplicate link</h3></a></li>
<li class="stream-item"><a href="https://elsewhere.test/two"><h3>Tesla shares fall after recall</h3></a><p>Weak outlook.</p></li>
<li class="stream-item"><h3>No link here</h3></li>
</ul></body></html>`

func TestScraper_RecentArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote/TSLA/news", r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	s := NewScraper(config.NewsConfig{ScrapeURL: srv.URL + "/quote/%s/news", Timeout: time.Second}, YahooSelectors)
	articles, err := s.RecentArticles(context.Background(), "TSLA", 10)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, srv.URL+"/news/one.html", articles[0].URL)
	assert.Equal(t, "Reuters", articles[0].Source)
	assert.Equal(t, market_data.SentimentPositive, articles[0].Sentiment)
	assert.Equal(t, "https://elsewhere.test/two", articles[1].URL)
	assert.Equal(t, market_data.SentimentNegative, articles[1].Sentiment)
}

func TestScraper_Limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	s := NewScraper(config.NewsConfig{ScrapeURL: srv.URL + "/quote/%s/news", Timeout: time.Second}, YahooSelectors)
	articles, err := s.RecentArticles(context.Background(), "TSLA", 1)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestScraper_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewScraper(config.NewsConfig{ScrapeURL: srv.URL + "/quote/%s/news", Timeout: time.Second}, YahooSelectors)
	_, err := s.RecentArticles(context.Background(), "TSLA", 5)
	assert.Error(t, err)
}

type stubProvider struct {
	articles []market_data.Article
	err      error
	calls    int
}

func (s *stubProvider) RecentArticles(context.Context, string, int) ([]market_data.Article, error) {
	s.calls++
	return s.articles, s.err
}

func TestFallback(t *testing.T) {
	failing := &stubProvider{err: errors.ErrExternal}
	empty := &stubProvider{}
	good := &stubProvider{articles: []market_data.Article{{Title: "x"}}}

	got, err := NewFallback(failing, empty, good).RecentArticles(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, empty.calls)

	_, err = NewFallback(failing).RecentArticles(context.Background(), "AAPL", 5)
	assert.True(t, errors.Is(err, errors.ErrExternal))

	got, err = NewFallback(empty).RecentArticles(context.Background(), "AAPL", 5)
	assert.NoError(t, err)
	assert.Empty(t, got)
}
