package database

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"plantregistry/reconcile"
	"plantregistry/registry"
)

// SeedDemo inserts a synthetic run with n plant records so the API has
// something to serve on a fresh install. Does nothing when any run
// already exists.
func (s *Store) SeedDemo(ctx context.Context, n int) error {
	var count int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count runs: %w", err)
	}
	if count > 0 {
		return nil
	}
	if n <= 0 {
		n = 25
	}

	faker := gofakeit.New(0)
	techs := registry.KnownTechnologies()

	result := &reconcile.RunResult{
		RunID:  uuid.New().String(),
		States: make(map[string]reconcile.State),
		Review: reconcile.NewReviewQueue(),
	}

	for i := 0; i < n; i++ {
		tech := techs[i%len(techs)]
		labels := registry.LabelSet(tech)

		record := registry.PlantRecord{
			ID:         fmt.Sprintf("demo-%03d", i+1),
			Name:       fmt.Sprintf("Central %s", faker.City()),
			Company:    faker.Company(),
			Technology: tech,
			Source:     "demo",
		}

		switch i % 3 {
		case 0:
			record.MatchMethod = registry.MatchExact
			record.MatchRef = fmt.Sprintf("ref-%03d", i+1)
			record.Subtype = labels[0]
			record.SubtypeConfidence = 0.90 + faker.Float64Range(0, 0.09)
			result.Stats.Exact++
			result.Stats.Classified++
		case 1:
			record.MatchMethod = registry.MatchFuzzy
			record.MatchRef = fmt.Sprintf("ref-%03d", i+1)
			record.MatchScore = faker.Number(86, 99)
			record.Subtype = labels[len(labels)-1]
			record.SubtypeConfidence = 0.88 + faker.Float64Range(0, 0.1)
			result.Stats.Fuzzy++
			result.Stats.Classified++
		default:
			record.MatchMethod = registry.MatchUnmatched
			result.Stats.Unmatched++
			result.Review.Add(reconcile.ReviewItem{
				PlantID:   record.ID,
				PlantName: record.Name,
				Reason:    reconcile.ReasonUnmatched,
			})
		}

		result.Records = append(result.Records, record)
		result.Stats.Total++
	}
	result.Stats.Review = result.Review.Len()

	if err := s.SaveRun(ctx, result, time.Now()); err != nil {
		return fmt.Errorf("failed to seed demo run: %w", err)
	}

	s.logger.Info("seeded demo run", "run_id", result.RunID, "records", n)
	return nil
}
