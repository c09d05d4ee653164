package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// searchHTML scrapes the DuckDuckGo HTML results page. Fallback path
// for queries the Instant Answer API has nothing for, which is most
// plant names.
func (c *Client) searchHTML(ctx context.Context, query string) (*SearchResult, error) {
	query = sanitizeQuery(query)
	if query == "" {
		return nil, fmt.Errorf("empty query after sanitization")
	}

	cacheKey := generateCacheKey("html:" + query)
	if c.cache != nil {
		if cached, found := c.cache.Get(cacheKey); found {
			return cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	result := parseResultsPage(doc, query)
	if c.cache != nil {
		c.cache.Set(cacheKey, result)
	}
	return result, nil
}

// parseResultsPage extracts title, link and snippet from the results
// markup. Selectors follow the html.duckduckgo.com layout.
func parseResultsPage(doc *goquery.Document, query string) *SearchResult {
	result := &SearchResult{
		Query:     query,
		Source:    "duckduckgo-html",
		Timestamp: time.Now(),
		Results:   make([]SearchItem, 0),
	}

	doc.Find("div.result").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find("a.result__a").Text())
		href, _ := sel.Find("a.result__a").Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").Text())

		if title == "" || snippet == "" {
			return
		}

		result.Found = true
		result.Results = append(result.Results, SearchItem{
			Title:   title,
			URL:     href,
			Snippet: snippet,
		})
	})

	if result.Found {
		result.Confidence = 0.6
	}
	return result
}
