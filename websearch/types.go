// Package websearch retrieves best-effort free-text context about a
// plant from public search, for the classification gateway to consume.
// Retrieval is best effort: an empty context block is a valid outcome,
// never an error the pipeline has to handle.
package websearch

import "time"

// SearchItem is one search hit.
type SearchItem struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

// SearchResult aggregates the hits for one query.
type SearchResult struct {
	Query      string       `json:"query"`
	Source     string       `json:"source"`
	Found      bool         `json:"found"`
	Confidence float64      `json:"confidence"`
	Results    []SearchItem `json:"results"`
	Timestamp  time.Time    `json:"timestamp"`
}
