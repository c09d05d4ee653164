// Package quality validates reconciled output before it is persisted
// or exported: structural checks on the record set plus a scored report
// of issues worth a second look.
package quality

import (
	"fmt"

	"plantregistry/reconcile"
	"plantregistry/registry"
	"plantregistry/schema"
)

// Report summarizes the validation of one run. Score is 0..100.
type Report struct {
	Valid  bool     `json:"valid"`
	Score  float64  `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

// ValidateRecord checks one record's internal consistency.
func ValidateRecord(r registry.PlantRecord) []string {
	var issues []string

	if r.ID == "" {
		issues = append(issues, "missing identifier")
	}
	if r.Name == "" {
		issues = append(issues, "missing name")
	}
	if _, ok := registry.ParseTechnology(string(r.Technology)); !ok {
		issues = append(issues, fmt.Sprintf("unknown technology %q", r.Technology))
	}

	if r.Subtype != registry.SubtypeNone {
		if !registry.ValidLabel(r.Technology, r.Subtype) {
			issues = append(issues, fmt.Sprintf("subtype %q not in the %s label set", r.Subtype, r.Technology))
		}
		if r.SubtypeConfidence <= 0 || r.SubtypeConfidence > 1 {
			issues = append(issues, fmt.Sprintf("subtype confidence %.2f outside (0,1]", r.SubtypeConfidence))
		}
		if schema.Map(r.Subtype, r.Technology) == schema.CodeUnknown && registry.ValidLabel(r.Technology, r.Subtype) {
			issues = append(issues, fmt.Sprintf("subtype %q has no technology code", r.Subtype))
		}
	}

	switch r.MatchMethod {
	case registry.MatchExact:
		if r.MatchRef == "" {
			issues = append(issues, "exact match without a target reference")
		}
		if r.MatchScore != 0 {
			issues = append(issues, fmt.Sprintf("exact match carries score %d", r.MatchScore))
		}
	case registry.MatchFuzzy:
		if r.MatchRef == "" {
			issues = append(issues, "fuzzy match without a target reference")
		}
		if r.MatchScore < 0 || r.MatchScore > 100 {
			issues = append(issues, fmt.Sprintf("fuzzy score %d outside [0,100]", r.MatchScore))
		}
	case registry.MatchUnmatched, "":
		if r.MatchRef != "" {
			issues = append(issues, "unmatched record carries a target reference")
		}
	default:
		issues = append(issues, fmt.Sprintf("unknown match method %q", r.MatchMethod))
	}

	return issues
}

// ValidateRun checks a whole run: per-record consistency, identifier
// uniqueness and agreement between records and the review queue.
func ValidateRun(result *reconcile.RunResult) Report {
	report := Report{}

	total := len(result.Records)
	if total == 0 {
		report.Valid = true
		report.Score = 100
		return report
	}

	clean := 0
	seen := make(map[string]bool, total)
	for _, r := range result.Records {
		issues := ValidateRecord(r)

		if seen[r.ID] {
			issues = append(issues, "duplicate identifier in output")
		}
		seen[r.ID] = true

		// A record without subtype in a classifiable category must be
		// accounted for in the review queue.
		if r.Subtype == registry.SubtypeNone && len(registry.LabelSet(r.Technology)) > 0 {
			if !result.Review.Contains(r.ID) {
				issues = append(issues, "unresolved subtype not queued for review")
			}
		}

		if len(issues) == 0 {
			clean++
		}
		for _, issue := range issues {
			report.Issues = append(report.Issues, fmt.Sprintf("%s: %s", r.ID, issue))
		}
	}

	for _, item := range result.Review.Items() {
		if !seen[item.PlantID] {
			report.Issues = append(report.Issues, fmt.Sprintf("%s: review item without a record", item.PlantID))
		}
	}

	report.Score = 100 * float64(clean) / float64(total)
	report.Valid = len(report.Issues) == 0
	return report
}
