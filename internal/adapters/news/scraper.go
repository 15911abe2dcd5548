package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/domain/market_data"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

const scraperUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Selectors are the CSS selectors for one news listing page
type Selectors struct {
	Item    string
	Title   string
	Link    string
	Summary string
	Source  string
}

// YahooSelectors match the finance.yahoo.com quote news stream
var YahooSelectors = Selectors{
	Item:    "li.stream-item, div.news-stream li",
	Title:   "h3",
	Link:    "a",
	Summary: "p",
	Source:  "div.publishing, .provider",
}

// Scraper reads a listing page whose URL template takes the symbol
type Scraper struct {
	urlTemplate string
	selectors   Selectors
	timeout     time.Duration
	now         func() time.Time
	log         *logger.Logger
}

var _ Provider = (*Scraper)(nil)

func NewScraper(cfg config.NewsConfig, selectors Selectors) *Scraper {
	return &Scraper{
		urlTemplate: cfg.ScrapeURL,
		selectors:   selectors,
		timeout:     cfg.Timeout,
		now:         time.Now,
		log:         logger.Get().With("component", "news_scraper"),
	}
}

func (s *Scraper) RecentArticles(ctx context.Context, symbol string, limit int) ([]market_data.Article, error) {
	pageURL := fmt.Sprintf(s.urlTemplate, url.PathEscape(symbol))
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse scrape url")
	}

	c := colly.NewCollector(
		colly.AllowedDomains(base.Hostname()),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	collected := s.now().UTC()
	var (
		articles []market_data.Article
		seen     = make(map[string]bool)
		visitErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", scraperUserAgent)
	})

	c.OnHTML(s.selectors.Item, func(e *colly.HTMLElement) {
		if len(articles) >= limit {
			return
		}
		title := strings.TrimSpace(e.ChildText(s.selectors.Title))
		href := e.ChildAttr(s.selectors.Link, "href")
		if title == "" || href == "" {
			return
		}
		link := e.Request.AbsoluteURL(href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true

		articles = append(articles, market_data.Article{
			Symbol:      symbol,
			Title:       title,
			Content:     strings.TrimSpace(e.ChildText(s.selectors.Summary)),
			URL:         link,
			Source:      strings.TrimSpace(e.ChildText(s.selectors.Source)),
			PublishedAt: collected,
			CollectedAt: collected,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		visitErr = errors.Wrapf(err, "scrape %s (status %d)", r.Request.URL, r.StatusCode)
	})

	start := time.Now()
	if err := c.Visit(pageURL); err != nil && visitErr == nil {
		visitErr = errors.Wrapf(err, "visit %s", pageURL)
	}
	c.Wait()
	metrics.RecordProviderCall("scraper", base.Hostname(), time.Since(start), visitErr)

	if visitErr != nil {
		return nil, visitErr
	}
	s.log.Debugw("scraped news", "symbol", symbol, "articles", len(articles))

	classify(articles)
	return articles, nil
}
