package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "plantregistry/1.0"

// ClientConfig configures the search client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit rate.Limit
	Cache     *Cache
	// ContextLimit caps the aggregated context block, in runes.
	ContextLimit int
}

// Client queries DuckDuckGo: the Instant Answer API first, the HTML
// results page as fallback.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *Cache
	relevance  *RelevanceScorer
	contextCap int
	logger     *slog.Logger
}

// NewClient creates a search client. Zero config fields fall back to
// the defaults.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.duckduckgo.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = rate.Every(time.Second)
	}
	if config.ContextLimit <= 0 {
		config.ContextLimit = 2000
	}

	return &Client{
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(config.RateLimit, 1),
		cache:      config.Cache,
		relevance:  NewRelevanceScorer(),
		contextCap: config.ContextLimit,
		logger:     slog.Default().With("component", "websearch"),
	}
}

// Context retrieves a bounded free-text block about a plant, ordered by
// snippet relevance to the query. Best effort: any failure yields an
// empty block and a log line, never an error that stops the pipeline.
func (c *Client) Context(ctx context.Context, query string) (string, error) {
	result, err := c.Search(ctx, query)
	if err != nil {
		c.logger.Warn("context retrieval failed", "query", query, "error", err)
		return "", nil
	}
	if !result.Found {
		return "", nil
	}

	items := make([]SearchItem, len(result.Results))
	copy(items, result.Results)
	for i := range items {
		items[i].Relevance = c.relevance.Score(query, items[i].Snippet)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance > items[j].Relevance
	})

	var b strings.Builder
	for _, item := range items {
		snippet := strings.TrimSpace(item.Snippet)
		if snippet == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(snippet)
		if len([]rune(b.String())) >= c.contextCap {
			break
		}
	}

	runes := []rune(b.String())
	if len(runes) > c.contextCap {
		runes = runes[:c.contextCap]
	}
	return string(runes), nil
}

// Search runs one query: cache, Instant Answer API, then HTML fallback.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = sanitizeQuery(query)
	if query == "" {
		return nil, fmt.Errorf("empty query after sanitization")
	}

	cacheKey := generateCacheKey(query)
	if c.cache != nil {
		if cached, found := c.cache.Get(cacheKey); found {
			return cached, nil
		}
	}

	result, err := c.searchInstantAnswer(ctx, query)
	if err == nil && result.Found && len(result.Results) > 0 {
		if c.cache != nil {
			c.cache.Set(cacheKey, result)
		}
		return result, nil
	}

	return c.searchHTML(ctx, query)
}

// duckDuckGoResponse is the Instant Answer API payload subset we read.
type duckDuckGoResponse struct {
	Abstract      string `json:"Abstract"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
	Results []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"Results"`
}

func (c *Client) searchInstantAnswer(ctx context.Context, query string) (*SearchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("no_html", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/?%s", c.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var ddg duckDuckGoResponse
	if err := json.NewDecoder(resp.Body).Decode(&ddg); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return c.convertResponse(&ddg, query), nil
}

func (c *Client) convertResponse(ddg *duckDuckGoResponse, query string) *SearchResult {
	result := &SearchResult{
		Query:     query,
		Source:    "duckduckgo",
		Timestamp: time.Now(),
		Results:   make([]SearchItem, 0),
	}

	if ddg.AbstractText != "" {
		result.Found = true
		result.Confidence = 0.9
		result.Results = append(result.Results, SearchItem{
			Title:     ddg.Abstract,
			URL:       ddg.AbstractURL,
			Snippet:   ddg.AbstractText,
			Relevance: 1.0,
		})
	}

	for _, topic := range ddg.RelatedTopics {
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		result.Found = true
		if result.Confidence < 0.7 {
			result.Confidence = 0.7
		}
		result.Results = append(result.Results, SearchItem{
			Title:     extractTitle(topic.Text),
			URL:       topic.FirstURL,
			Snippet:   topic.Text,
			Relevance: 0.7,
		})
	}

	for _, res := range ddg.Results {
		if res.Text == "" || res.FirstURL == "" {
			continue
		}
		result.Found = true
		if result.Confidence < 0.6 {
			result.Confidence = 0.6
		}
		result.Results = append(result.Results, SearchItem{
			Title:     extractTitle(res.Text),
			URL:       res.FirstURL,
			Snippet:   res.Text,
			Relevance: 0.6,
		})
	}

	return result
}

func sanitizeQuery(query string) string {
	query = strings.TrimSpace(query)
	const maxLength = 200
	if len(query) > maxLength {
		query = query[:maxLength]
	}
	return query
}

func extractTitle(text string) string {
	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text
}

func generateCacheKey(query string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(query)))
	return hex.EncodeToString(hash[:])
}
