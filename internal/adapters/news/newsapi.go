package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/adapters/transport"
	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
)

// NewsAPI queries the newsapi.org "everything" endpoint
type NewsAPI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retrier    *transport.Retrier
	now        func() time.Time
}

var _ Provider = (*NewsAPI)(nil)

func NewNewsAPI(cfg config.NewsConfig) *NewsAPI {
	return &NewsAPI{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retrier:    transport.NewRetrier(transport.DefaultRetryConfig()),
		now:        time.Now,
	}
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (n *NewsAPI) RecentArticles(ctx context.Context, symbol string, limit int) ([]market_data.Article, error) {
	if n.apiKey == "" {
		return nil, errors.Wrap(errors.ErrUnavailable, "newsapi key not configured")
	}

	q := url.Values{}
	q.Set("q", symbol+" stock")
	q.Set("apiKey", n.apiKey)
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(limit))
	endpoint := n.baseURL + "/v2/everything?" + q.Encode()

	start := time.Now()
	body, err := transport.Retry(ctx, n.retrier, func(ctx context.Context) (*newsAPIResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create request")
		}
		resp, err := n.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch news")
		}
		defer resp.Body.Close()

		if err := transport.CheckResponse("newsapi", resp); err != nil {
			return nil, err
		}
		var out newsAPIResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, errors.Wrap(err, "failed to decode response")
		}
		return &out, nil
	})
	metrics.RecordProviderCall("newsapi", "everything", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(err, "newsapi %s", symbol)
	}
	if body.Status != "ok" {
		return nil, errors.Wrapf(errors.ErrExternal, "newsapi %s: %s", body.Code, body.Message)
	}

	collected := n.now().UTC()
	articles := make([]market_data.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}
		published, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			published = collected
		}
		articles = append(articles, market_data.Article{
			Symbol:      symbol,
			Title:       a.Title,
			Content:     a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: published.UTC(),
			CollectedAt: collected,
		})
	}
	classify(articles)
	return articles, nil
}
