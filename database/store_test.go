package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"plantregistry/reconcile"
	"plantregistry/registry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult() *reconcile.RunResult {
	result := &reconcile.RunResult{
		RunID:  "run-1",
		States: map[string]reconcile.State{},
		Review: reconcile.NewReviewQueue(),
	}
	result.Records = []registry.PlantRecord{
		{
			ID: "s1", Name: "Central Sopladora", Company: "CELEC EP",
			Technology: registry.TechHydro, Subtype: "Reservoir", SubtypeConfidence: 0.95,
			Source: "cenace", MatchRef: "t1", MatchMethod: registry.MatchExact,
		},
		{
			ID: "s2", Name: "Paute Mazar", Company: "CELEC EP",
			Technology: registry.TechHydro, Source: "cenace",
			MatchMethod: registry.MatchUnmatched,
		},
	}
	result.Review.Add(reconcile.ReviewItem{PlantID: "s2", PlantName: "Paute Mazar", Reason: reconcile.ReasonUnmatched})
	result.Stats = reconcile.RunStats{Total: 2, Exact: 1, Unmatched: 1, Classified: 1, Review: 1}
	return result
}

func TestSaveAndLoadRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Now().Add(-time.Minute)

	if err := store.SaveRun(ctx, sampleResult(), started); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Stats.Total != 2 || run.Stats.Exact != 1 || run.Stats.Review != 1 {
		t.Errorf("stats = %+v, want total 2, exact 1, review 1", run.Stats)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		t.Errorf("finished %v before started %v", run.FinishedAt, run.StartedAt)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleResult(), time.Now()); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	records, err := store.GetRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	byID := map[string]registry.PlantRecord{}
	for _, r := range records {
		byID[r.ID] = r
	}
	got := byID["s1"]
	if got.Name != "Central Sopladora" || got.Subtype != "Reservoir" || got.SubtypeConfidence != 0.95 {
		t.Errorf("s1 round trip mismatch: %+v", got)
	}
	if got.MatchMethod != registry.MatchExact || got.MatchRef != "t1" {
		t.Errorf("s1 match fields mismatch: %+v", got)
	}
	if byID["s2"].Subtype != registry.SubtypeNone {
		t.Errorf("s2 Subtype = %q, want unresolved", byID["s2"].Subtype)
	}
}

func TestReviewItemsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleResult(), time.Now()); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	items, err := store.GetReviewItems(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetReviewItems() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].PlantID != "s2" || items[0].Reason != reconcile.ReasonUnmatched {
		t.Errorf("review item = %+v", items[0])
	}
}

func TestSaveRunIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := sampleResult()
	if err := store.SaveRun(ctx, result, time.Now()); err != nil {
		t.Fatalf("first SaveRun() error = %v", err)
	}
	if err := store.SaveRun(ctx, result, time.Now()); err != nil {
		t.Fatalf("second SaveRun() error = %v", err)
	}

	records, err := store.GetRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("len(records) after re-save = %d, want 2", len(records))
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("error = %v, want ErrRunNotFound", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := sampleResult()
	older.RunID = "run-old"
	newer := sampleResult()
	newer.RunID = "run-new"

	if err := store.SaveRun(ctx, older, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("SaveRun(old) error = %v", err)
	}
	if err := store.SaveRun(ctx, newer, time.Now()); err != nil {
		t.Fatalf("SaveRun(new) error = %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].RunID != "run-new" {
		t.Errorf("runs[0] = %s, want run-new first", runs[0].RunID)
	}
}

func TestMigrationsRerunSafely(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	first, err := New(path)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	if err := first.SaveRun(context.Background(), sampleResult(), time.Now()); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	first.Close()

	// Reopening must not re-apply migrations or lose data.
	second, err := New(path)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer second.Close()

	if _, err := second.GetRun(context.Background(), "run-1"); err != nil {
		t.Errorf("GetRun() after reopen error = %v", err)
	}
}

func TestSeedDemoOnlyOnEmptyDatabase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SeedDemo(ctx, 6); err != nil {
		t.Fatalf("SeedDemo() error = %v", err)
	}
	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1 seeded run", len(runs))
	}
	if runs[0].Stats.Total != 6 {
		t.Errorf("seeded total = %d, want 6", runs[0].Stats.Total)
	}

	// A second seed against a populated database is a no-op.
	if err := store.SeedDemo(ctx, 6); err != nil {
		t.Fatalf("second SeedDemo() error = %v", err)
	}
	runs, _ = store.ListRuns(ctx, 10)
	if len(runs) != 1 {
		t.Errorf("len(runs) after re-seed = %d, want 1", len(runs))
	}
}
