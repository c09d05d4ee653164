package match

import (
	"testing"

	"plantregistry/registry"
)

func hydro(id, name, company string) registry.PlantRecord {
	return registry.PlantRecord{
		ID:         id,
		Name:       name,
		Company:    company,
		Technology: registry.TechHydro,
	}
}

func resultFor(t *testing.T, results []Result, sourceID string) Result {
	t.Helper()
	for _, r := range results {
		if r.SourceID == sourceID {
			return r
		}
	}
	t.Fatalf("no result for source %s", sourceID)
	return Result{}
}

func TestMatchExactNormalizedKey(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{hydro("s1", "Central Sopladora", "")}
	targets := []registry.PlantRecord{hydro("t1", "CENTRAL SOPLADORA ", "")}

	results := m.Match(sources, targets)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if r.Method != registry.MatchExact {
		t.Errorf("method = %s, want exact", r.Method)
	}
	if r.TargetID != "t1" {
		t.Errorf("target = %s, want t1", r.TargetID)
	}
	if r.Score != 0 {
		t.Errorf("exact match carries score %d, want 0", r.Score)
	}
}

func TestMatchFuzzyPartialRatio(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{hydro("s1", "Coca Codo Sinclair", "")}
	targets := []registry.PlantRecord{hydro("t1", "Coca Codo Sinclair Hydro Plant", "")}

	r := resultFor(t, m.Match(sources, targets), "s1")
	if r.Method != registry.MatchFuzzy {
		t.Fatalf("method = %s, want fuzzy", r.Method)
	}
	if r.TargetID != "t1" {
		t.Errorf("target = %s, want t1", r.TargetID)
	}
	if r.Score < DefaultPlantNameThreshold {
		t.Errorf("fuzzy score %d below threshold %d", r.Score, DefaultPlantNameThreshold)
	}
}

func TestMatchNeverCrossesCategories(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{hydro("s1", "Central Sopladora", "")}
	target := hydro("t1", "Central Sopladora", "")
	target.Technology = registry.TechThermal

	r := resultFor(t, m.Match(sources, []registry.PlantRecord{target}), "s1")
	if r.Method != registry.MatchUnmatched {
		t.Errorf("cross-category match: method = %s, want unmatched", r.Method)
	}
	if r.TargetID != "" {
		t.Errorf("cross-category match picked target %s", r.TargetID)
	}
}

func TestMatchEmptyTargets(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{
		hydro("s1", "Central Sopladora", ""),
		hydro("s2", "Paute Molino", ""),
	}

	results := m.Match(sources, nil)
	if len(results) != len(sources) {
		t.Fatalf("got %d results, want %d", len(results), len(sources))
	}
	for _, r := range results {
		if r.Method != registry.MatchUnmatched {
			t.Errorf("source %s: method = %s, want unmatched", r.SourceID, r.Method)
		}
	}
}

func TestMatchEmptySourceName(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{hydro("s1", "   ", "")}
	targets := []registry.PlantRecord{hydro("t1", "Central Sopladora", "")}

	r := resultFor(t, m.Match(sources, targets), "s1")
	if r.Method != registry.MatchUnmatched {
		t.Errorf("empty name: method = %s, want unmatched", r.Method)
	}
}

func TestMatchExactTieBreakPrefersCompany(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{hydro("s1", "San Francisco", "Hidropastaza")}
	targets := []registry.PlantRecord{
		hydro("t1", "San Francisco", "Hidroagoyan"),
		hydro("t2", "San Francisco", "HIDROPASTAZA"),
	}

	r := resultFor(t, m.Match(sources, targets), "s1")
	if r.Method != registry.MatchExact {
		t.Fatalf("method = %s, want exact", r.Method)
	}
	if r.TargetID != "t2" {
		t.Errorf("tie-break chose %s, want t2 (company match)", r.TargetID)
	}
}

func TestMatchExactTieBreakFallsBackToOrder(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{hydro("s1", "San Francisco", "")}
	targets := []registry.PlantRecord{
		hydro("t1", "San Francisco", "Hidroagoyan"),
		hydro("t2", "San Francisco", "Hidropastaza"),
	}

	r := resultFor(t, m.Match(sources, targets), "s1")
	if r.TargetID != "t1" {
		t.Errorf("tie-break chose %s, want t1 (first in source order)", r.TargetID)
	}
}

func TestMatchFuzzyTieBreakDeterministic(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{hydro("s1", "Minas San Francisco", "")}
	// Both targets contain the source name, so both score 100.
	targets := []registry.PlantRecord{
		hydro("t2", "Minas San Francisco Plant B", ""),
		hydro("t1", "Minas San Francisco Plant A", ""),
	}

	first := resultFor(t, m.Match(sources, targets), "s1")
	for i := 0; i < 10; i++ {
		again := resultFor(t, m.Match(sources, targets), "s1")
		if again.TargetID != first.TargetID {
			t.Fatalf("nondeterministic tie-break: %s then %s", first.TargetID, again.TargetID)
		}
	}
	// Smallest normalized key wins.
	if first.TargetID != "t1" {
		t.Errorf("tie-break chose %s, want t1", first.TargetID)
	}
}

func TestMatchOneResultPerSource(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{
		hydro("s1", "Central Sopladora", ""),
		hydro("s2", "Coca Codo Sinclair", ""),
		hydro("s3", "", ""),
	}
	targets := []registry.PlantRecord{
		hydro("t1", "Central Sopladora", ""),
		hydro("t2", "Coca Codo Sinclair Hydro Plant", ""),
	}

	results := m.Match(sources, targets)
	if len(results) != len(sources) {
		t.Fatalf("got %d results, want %d", len(results), len(sources))
	}

	seen := make(map[string]int)
	for _, r := range results {
		seen[r.SourceID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("source %s has %d results, want 1", id, n)
		}
	}
}

func TestMatchFuzzyScoreNeverBelowThreshold(t *testing.T) {
	m := New(DefaultConfig())

	sources := []registry.PlantRecord{
		hydro("s1", "Coca Codo Sinclair", ""),
		hydro("s2", "Totally Different Name", ""),
	}
	targets := []registry.PlantRecord{
		hydro("t1", "Coca Codo Sinclair Hydro Plant", ""),
	}

	for _, r := range m.Match(sources, targets) {
		if r.Method == registry.MatchFuzzy && r.Score < DefaultPlantNameThreshold {
			t.Errorf("fuzzy result for %s has score %d below threshold", r.SourceID, r.Score)
		}
		if r.Method == registry.MatchExact && r.Score != 0 {
			t.Errorf("exact result for %s carries score %d", r.SourceID, r.Score)
		}
	}
}
