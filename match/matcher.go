package match

import (
	"log/slog"

	"plantregistry/normalize"
	"plantregistry/registry"
)

const (
	// DefaultCompanyThreshold is the fuzzy acceptance bound when the
	// source record carries a company name.
	DefaultCompanyThreshold = 90
	// DefaultPlantNameThreshold is the looser bound used when matching
	// on the plant name alone, with no company name available.
	DefaultPlantNameThreshold = 85
)

// Config holds the fuzzy acceptance thresholds.
type Config struct {
	CompanyThreshold   int
	PlantNameThreshold int
}

// DefaultConfig returns the default matcher configuration.
func DefaultConfig() Config {
	return Config{
		CompanyThreshold:   DefaultCompanyThreshold,
		PlantNameThreshold: DefaultPlantNameThreshold,
	}
}

// Result pairs one source record with at most one target record.
// Exact matches never carry a score; fuzzy scores are always at or
// above the configured threshold.
type Result struct {
	SourceID string
	TargetID string
	Method   registry.MatchMethod
	Score    int
}

// Matcher joins a source record set against a target record set.
type Matcher struct {
	config Config
	logger *slog.Logger
}

// New creates a matcher. Zero or negative thresholds fall back to the
// defaults.
func New(config Config) *Matcher {
	if config.CompanyThreshold <= 0 {
		config.CompanyThreshold = DefaultCompanyThreshold
	}
	if config.PlantNameThreshold <= 0 {
		config.PlantNameThreshold = DefaultPlantNameThreshold
	}
	return &Matcher{
		config: config,
		logger: slog.Default().With("component", "matcher"),
	}
}

// candidate is a target record with its normalized keys precomputed.
type candidate struct {
	record     registry.PlantRecord
	nameKey    string
	companyKey string
	order      int
}

// Match produces exactly one Result per source record. The direct pass
// over normalized keys fully completes before the fuzzy pass begins;
// the fuzzy pass only ever sees records the direct pass left behind.
// Matching never crosses technology categories.
func (m *Matcher) Match(sources, targets []registry.PlantRecord) []Result {
	byCategory := make(map[registry.Technology][]candidate)
	for i, t := range targets {
		key := normalize.Normalize(t.Name)
		if key == "" {
			continue
		}
		byCategory[t.Technology] = append(byCategory[t.Technology], candidate{
			record:     t,
			nameKey:    key,
			companyKey: normalize.Normalize(t.Company),
			order:      i,
		})
	}

	byKey := make(map[registry.Technology]map[string][]candidate)
	for tech, cands := range byCategory {
		keyed := make(map[string][]candidate)
		for _, c := range cands {
			keyed[c.nameKey] = append(keyed[c.nameKey], c)
		}
		byKey[tech] = keyed
	}

	results := make([]Result, 0, len(sources))
	var residual []int

	// Direct pass.
	for i, s := range sources {
		key := normalize.Normalize(s.Name)
		if key == "" {
			// Missing names are a data error, not a failure: they can
			// never match and go straight to unmatched.
			results = append(results, Result{SourceID: s.ID, Method: registry.MatchUnmatched})
			continue
		}

		cands := byKey[s.Technology][key]
		if len(cands) == 0 {
			results = append(results, Result{})
			residual = append(residual, i)
			continue
		}

		chosen := m.breakExactTie(s, cands)
		results = append(results, Result{
			SourceID: s.ID,
			TargetID: chosen.record.ID,
			Method:   registry.MatchExact,
		})
	}

	// Fuzzy pass over the residual only.
	for _, i := range residual {
		results[i] = m.fuzzyMatch(sources[i], byCategory[sources[i].Technology])
	}

	return results
}

// breakExactTie resolves several targets sharing one normalized key:
// a target whose normalized company name equals the source's wins,
// otherwise the first target in source order.
func (m *Matcher) breakExactTie(s registry.PlantRecord, cands []candidate) candidate {
	if len(cands) == 1 {
		return cands[0]
	}

	m.logger.Warn("ambiguous exact match, applying tie-break",
		"source_id", s.ID,
		"name", s.Name,
		"candidates", len(cands))

	companyKey := normalize.Normalize(s.Company)
	if companyKey != "" {
		for _, c := range cands {
			if c.companyKey == companyKey {
				return c
			}
		}
	}

	first := cands[0]
	for _, c := range cands[1:] {
		if c.order < first.order {
			first = c
		}
	}
	return first
}

// fuzzyMatch scores a source record against every same-category target
// and accepts the best candidate when it clears the threshold. Equal
// best scores break deterministically: lexicographically smallest
// normalized key, then source order.
func (m *Matcher) fuzzyMatch(s registry.PlantRecord, cands []candidate) Result {
	sourceKey, threshold := m.fuzzyKey(s)
	if sourceKey == "" {
		return Result{SourceID: s.ID, Method: registry.MatchUnmatched}
	}

	bestScore := -1
	var best candidate
	tied := false
	for _, c := range cands {
		targetKey := c.nameKey
		if s.Company != "" && c.companyKey != "" {
			targetKey = c.companyKey + " " + c.nameKey
		}
		score := PartialRatio(sourceKey, targetKey)
		switch {
		case score > bestScore:
			bestScore = score
			best = c
			tied = false
		case score == bestScore && bestScore >= 0:
			tied = true
			if c.nameKey < best.nameKey || (c.nameKey == best.nameKey && c.order < best.order) {
				best = c
			}
		}
	}

	if bestScore < threshold {
		return Result{SourceID: s.ID, Method: registry.MatchUnmatched}
	}

	if tied {
		m.logger.Warn("equal fuzzy scores, applying tie-break",
			"source_id", s.ID,
			"name", s.Name,
			"score", bestScore,
			"chosen_target", best.record.ID)
	}

	return Result{
		SourceID: s.ID,
		TargetID: best.record.ID,
		Method:   registry.MatchFuzzy,
		Score:    bestScore,
	}
}

// fuzzyKey picks the comparison key and threshold for a source record:
// company plus plant name under the strict threshold when a company
// name is present, plant name alone under the looser threshold when it
// is not. The looser path is this explicit branch and nothing else.
func (m *Matcher) fuzzyKey(s registry.PlantRecord) (string, int) {
	nameKey := normalize.Normalize(s.Name)
	if nameKey == "" {
		return "", 0
	}
	companyKey := normalize.Normalize(s.Company)
	if companyKey == "" {
		return nameKey, m.config.PlantNameThreshold
	}
	return companyKey + " " + nameKey, m.config.CompanyThreshold
}
