package websearch

import "testing"

func TestRelevanceScoreRange(t *testing.T) {
	rs := NewRelevanceScorer()

	score := rs.Score("central hidroeléctrica Paute", "La central hidroeléctrica Paute Molino es la mayor del Ecuador")
	if score <= 0.0 || score > 1.0 {
		t.Errorf("score = %v, want in (0,1]", score)
	}
}

func TestRelevanceStemmingMatchesInflections(t *testing.T) {
	rs := NewRelevanceScorer()

	// Same stem, different inflection: must still count as overlap.
	with := rs.Score("hidroeléctrica", "las centrales hidroeléctricas del país")
	if with == 0.0 {
		t.Error("stemming failed to match singular against plural")
	}
}

func TestRelevanceNoOverlap(t *testing.T) {
	rs := NewRelevanceScorer()

	if score := rs.Score("central sopladora", "completely unrelated text"); score != 0.0 {
		t.Errorf("score = %v, want 0 for disjoint texts", score)
	}
}

func TestRelevanceEmptyInputs(t *testing.T) {
	rs := NewRelevanceScorer()

	if score := rs.Score("", "anything"); score != 0.0 {
		t.Errorf("empty query scored %v, want 0", score)
	}
	if score := rs.Score("central", ""); score != 0.0 {
		t.Errorf("empty snippet scored %v, want 0", score)
	}
}
