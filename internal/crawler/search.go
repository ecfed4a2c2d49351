package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/tubeharvest/harvester/internal/logger"
	"github.com/tubeharvest/harvester/internal/utils"
)

const (
	ytBaseURL        = "https://www.youtube.com"
	ytWebVersion     = "2.20250222.10.00" // innertube WEB client version
	maxResponseBytes = 4 * 1024 * 1024
	ytChannelsFilter = "EgIQAg%3D%3D" // channels-only filter param
)

// PageCache is an optional read-through cache for fetched upstream pages.
// A nil cache disables caching entirely.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
}

// Candidate is one channel surfaced by a search results page.
type Candidate struct {
	ID             string
	Name           string
	URL            string
	SubscriberHint int64 // approximate, -1 when the page shows no count
}

// SearchPage is one parsed page of channel search results.
type SearchPage struct {
	Candidates []Candidate
	// NextCursor is the continuation token for the following page, empty
	// when the result list is terminal.
	NextCursor string
}

// Options configures a Client.
type Options struct {
	UserAgent    string
	FetchTimeout time.Duration
	CrawlDelay   time.Duration
	Retry        RetryConfig
	Cache        PageCache
	Logger       logger.Logger

	// BaseURL overrides the upstream origin; tests point it at a local
	// server.
	BaseURL string
}

// Client fetches and parses public YouTube surfaces: search result pages,
// channel about/videos tabs and watch pages. One shared rate limiter paces
// every request regardless of which component asked for it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retry      RetryConfig
	cache      PageCache
	log        logger.Logger
}

// New builds a Client from options, falling back to sane defaults for the
// zero values.
func New(opts Options) *Client {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.CrawlDelay <= 0 {
		opts.CrawlDelay = 800 * time.Millisecond
	}
	if opts.Retry.MaxRetries == 0 {
		opts.Retry = DefaultRetryConfig
	}
	if opts.BaseURL == "" {
		opts.BaseURL = ytBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.FetchTimeout},
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(opts.CrawlDelay), 1),
		retry:      opts.Retry,
		cache:      opts.Cache,
		log:        opts.Logger,
	}
}

// FetchSearchPage fetches one page of channel search results for keyword.
// An empty cursor fetches the first page from the public results URL; a
// non-empty cursor resumes pagination through the innertube search endpoint.
func (c *Client) FetchSearchPage(ctx context.Context, keyword, cursor string) (*SearchPage, error) {
	var data []byte
	var err error
	if cursor == "" {
		data, err = c.fetchFirstSearchPage(ctx, keyword)
	} else {
		data, err = c.fetchContinuation(ctx, cursor)
	}
	if err != nil {
		return nil, err
	}

	page := &SearchPage{NextCursor: findContinuationToken(data)}
	seen := make(map[string]bool)
	for _, cr := range collectChannelRenderers(data) {
		if seen[cr.ChannelID] {
			continue
		}
		seen[cr.ChannelID] = true
		page.Candidates = append(page.Candidates, Candidate{
			ID:             cr.ChannelID,
			Name:           cr.Title.text(),
			URL:            ytBaseURL + "/channel/" + cr.ChannelID,
			SubscriberHint: parseApproxCount(cr.SubscriberCountText.text()),
		})
	}
	return page, nil
}

func (c *Client) fetchFirstSearchPage(ctx context.Context, keyword string) ([]byte, error) {
	searchURL := c.baseURL + "/results?search_query=" + url.QueryEscape(keyword) + "&sp=" + ytChannelsFilter
	body, err := c.fetchHTML(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("search page %q: %w", keyword, err)
	}
	data := findMarkedJSON(body, ytInitialDataMarker)
	if data == nil {
		return nil, fmt.Errorf("search page %q: ytInitialData not found", keyword)
	}
	return data, nil
}

// fetchContinuation POSTs the stored cursor to the innertube search endpoint
// with WEB client headers. The response body is plain JSON, so the same
// renderer walk applies.
func (c *Client) fetchContinuation(ctx context.Context, cursor string) ([]byte, error) {
	payload := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    "WEB",
				"clientVersion": ytWebVersion,
				"hl":            "en",
				"gl":            "US",
			},
		},
		"continuation": cursor,
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/youtubei/v1/search?prettyPrint=false", bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "*/*")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Youtube-Client-Name", "1")
		req.Header.Set("X-Youtube-Client-Version", ytWebVersion)
		req.Header.Set("Origin", ytBaseURL)
		req.Header.Set("Referer", ytBaseURL+"/")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("search continuation: %w", err)
	}
	defer utils.Close(resp.Body)
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("search continuation HTTP %d: %s", resp.StatusCode, snippet)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

// fetchHTML GETs a public page with browser-shaped headers, going through
// the cache when one is configured.
func (c *Client) fetchHTML(ctx context.Context, pageURL string) ([]byte, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, pageURL); ok {
			return body, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer utils.Close(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(ctx, pageURL, body)
	}
	return body, nil
}
