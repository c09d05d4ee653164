package websearch

import (
	"strings"
	"sync"
	"unicode"

	"github.com/kljensen/snowball"

	"plantregistry/normalize"
)

// RelevanceScorer ranks snippets by stemmed token overlap with the
// query. Plant registries and the pages describing them are mostly
// Spanish, so tokens are stemmed with the Spanish Snowball stemmer
// ("hidroeléctrica" and "hidroeléctricas" should count as one token).
type RelevanceScorer struct {
	cache map[string]string
	mu    sync.RWMutex
}

// NewRelevanceScorer creates a scorer with an internal stem cache.
func NewRelevanceScorer() *RelevanceScorer {
	return &RelevanceScorer{cache: make(map[string]string)}
}

// Score returns the fraction of query tokens present in the snippet
// after normalization and stemming, in [0,1].
func (rs *RelevanceScorer) Score(query, snippet string) float64 {
	queryTokens := rs.stemmedSet(query)
	if len(queryTokens) == 0 {
		return 0.0
	}
	snippetTokens := rs.stemmedSet(snippet)

	matched := 0
	for token := range queryTokens {
		if snippetTokens[token] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func (rs *RelevanceScorer) stemmedSet(text string) map[string]bool {
	words := strings.FieldsFunc(normalize.Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]bool, len(words))
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		set[rs.stem(word)] = true
	}
	return set
}

func (rs *RelevanceScorer) stem(word string) string {
	rs.mu.RLock()
	stemmed, ok := rs.cache[word]
	rs.mu.RUnlock()
	if ok {
		return stemmed
	}

	stemmed, err := snowball.Stem(word, "spanish", true)
	if err != nil {
		// Tokens the stemmer cannot handle (numbers, foreign words)
		// participate as-is.
		stemmed = word
	}

	rs.mu.Lock()
	rs.cache[word] = stemmed
	rs.mu.Unlock()
	return stemmed
}
