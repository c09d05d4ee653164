// Package reconcile drives the resolution pipeline: match per
// technology category, classify the records still missing a subtype,
// merge accepted results into the canonical record set and queue the
// rest for manual review.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"plantregistry/classify"
	"plantregistry/match"
	"plantregistry/registry"
)

// ContextProvider supplies best-effort free text about a plant. An
// empty block is a valid answer.
type ContextProvider interface {
	Context(ctx context.Context, query string) (string, error)
}

// Classifier is the confidence-gated subtype oracle.
type Classifier interface {
	Classify(ctx context.Context, req classify.Request) classify.Result
}

// Options tunes a run.
type Options struct {
	// MaxConcurrentPartitions bounds how many technology categories are
	// processed in parallel. Classification calls are rate limited and
	// costed; the bound keeps the pressure predictable.
	MaxConcurrentPartitions int
	// ClassifyUnmatched also classifies records that found no
	// counterpart, instead of sending them straight to review.
	ClassifyUnmatched bool
}

// DefaultOptions returns the run defaults.
func DefaultOptions() Options {
	return Options{
		MaxConcurrentPartitions: 2,
		ClassifyUnmatched:       true,
	}
}

// RunStats counts the outcomes of one run.
type RunStats struct {
	Total      int `json:"total"`
	Exact      int `json:"exact"`
	Fuzzy      int `json:"fuzzy"`
	Unmatched  int `json:"unmatched"`
	Classified int `json:"classified"`
	Review     int `json:"review"`
}

// RunResult is the committed outcome of a run. On cancellation the
// already-committed partitions remain valid; re-running the remainder
// is side-effect free.
type RunResult struct {
	RunID   string
	Records []registry.PlantRecord
	States  map[string]State
	Review  *ReviewQueue
	Stats   RunStats
}

// Orchestrator owns the in-flight record set for a run. The matcher and
// the gateway only read records and return results; all mutation
// happens here, single-writer.
type Orchestrator struct {
	matcher  *match.Matcher
	gateway  Classifier
	contexts ContextProvider
	options  Options
	logger   *slog.Logger
}

// New creates an orchestrator. contexts may be nil, in which case
// classification runs without retrieved context.
func New(matcher *match.Matcher, gateway Classifier, contexts ContextProvider, options Options) *Orchestrator {
	if options.MaxConcurrentPartitions <= 0 {
		options.MaxConcurrentPartitions = 1
	}
	return &Orchestrator{
		matcher:  matcher,
		gateway:  gateway,
		contexts: contexts,
		options:  options,
		logger:   slog.Default().With("component", "orchestrator"),
	}
}

// partitionOutcome carries one category's committed results back to the
// merge step.
type partitionOutcome struct {
	tech    registry.Technology
	records []registry.PlantRecord
	states  map[string]State
	stats   RunStats
}

// Run reconciles sources against targets and returns the full record
// set: every source record comes back exactly once, resolved or marked
// for review. Individual failures degrade records to review, they never
// abort the batch. The returned error is non-nil only on cancellation.
func (o *Orchestrator) Run(ctx context.Context, sources, targets []registry.PlantRecord) (*RunResult, error) {
	runID := uuid.New().String()
	o.logger.Info("starting reconciliation run",
		"run_id", runID,
		"sources", len(sources),
		"targets", len(targets))

	result := &RunResult{
		RunID:  runID,
		States: make(map[string]State),
		Review: NewReviewQueue(),
	}

	sources = dedupeByID(sources, o.logger)

	sourceParts := partition(sources)
	targetParts := partition(targets)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.options.MaxConcurrentPartitions)

	for tech, part := range sourceParts {
		tech, part := tech, part
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := o.runPartition(gctx, tech, part, targetParts[tech], result.Review)

			// Commit the partition. Committed results stay valid even
			// if a later partition is cancelled.
			mu.Lock()
			result.Records = append(result.Records, outcome.records...)
			for id, s := range outcome.states {
				result.States[id] = s
			}
			addStats(&result.Stats, outcome.stats)
			mu.Unlock()
			return gctx.Err()
		})
	}

	err := g.Wait()
	result.Stats.Review = result.Review.Len()

	o.logger.Info("reconciliation run finished",
		"run_id", runID,
		"total", result.Stats.Total,
		"exact", result.Stats.Exact,
		"fuzzy", result.Stats.Fuzzy,
		"unmatched", result.Stats.Unmatched,
		"classified", result.Stats.Classified,
		"review", result.Stats.Review,
		"cancelled", err != nil)

	if err != nil {
		return result, fmt.Errorf("run %s aborted: %w", runID, err)
	}
	return result, nil
}

// runPartition processes one technology category: the full match
// sequence first, then classification of records still missing a
// subtype. The direct pass runs to completion inside the matcher before
// the fuzzy pass, and every record is matched before any is classified.
func (o *Orchestrator) runPartition(ctx context.Context, tech registry.Technology, sources, targets []registry.PlantRecord, review *ReviewQueue) partitionOutcome {
	outcome := partitionOutcome{
		tech:   tech,
		states: make(map[string]State, len(sources)),
	}
	outcome.stats.Total = len(sources)

	// Resumability: records carrying an accepted match from a previous
	// run keep it; unmatched and fresh records go through the matcher.
	var toMatch []registry.PlantRecord
	for _, s := range sources {
		outcome.states[s.ID] = StatePending
		if !hasAcceptedMatch(s) {
			toMatch = append(toMatch, s)
		}
	}

	matchByID := make(map[string]match.Result, len(toMatch))
	for _, r := range o.matcher.Match(toMatch, targets) {
		matchByID[r.SourceID] = r
	}

	classified := make(map[string]bool)
	for i := range sources {
		record := &sources[i]

		if r, ok := matchByID[record.ID]; ok {
			o.applyMatch(record, r, outcome.states)
		} else {
			// Carried over from a previous run.
			outcome.states[record.ID] = stateForMethod(record.MatchMethod)
		}

		switch outcome.states[record.ID] {
		case StateMatchedExact:
			outcome.stats.Exact++
		case StateMatchedFuzzy:
			outcome.stats.Fuzzy++
		case StateUnmatched:
			outcome.stats.Unmatched++
			review.Add(ReviewItem{PlantID: record.ID, PlantName: record.Name, Reason: ReasonUnmatched})
		}
	}

	for i := range sources {
		record := &sources[i]
		if ctx.Err() != nil {
			// Abort mid-partition: unresolved records go to review so
			// the run still accounts for every record.
			if record.Subtype == registry.SubtypeNone && outcome.states[record.ID] != StateReviewPending {
				review.Add(ReviewItem{PlantID: record.ID, PlantName: record.Name, Reason: ReasonClassificationUnavailable})
				outcome.states[record.ID] = StateReviewPending
			}
			continue
		}
		o.resolveSubtype(ctx, record, outcome.states, review, classified)
	}

	for _, s := range sources {
		if outcome.states[s.ID] == StateClassified {
			outcome.stats.Classified++
		}
	}

	outcome.records = sources
	return outcome
}

// applyMatch writes a match result onto the record. Fields set by an
// earlier accepted pass are never overwritten.
func (o *Orchestrator) applyMatch(record *registry.PlantRecord, r match.Result, states map[string]State) {
	if hasAcceptedMatch(*record) {
		return
	}

	record.MatchMethod = r.Method
	record.MatchRef = r.TargetID
	record.MatchScore = r.Score
	states[record.ID] = stateForMethod(r.Method)
}

func hasAcceptedMatch(r registry.PlantRecord) bool {
	return r.MatchMethod == registry.MatchExact || r.MatchMethod == registry.MatchFuzzy
}

// resolveSubtype runs the classification leg for one record: skip when
// a subtype is already present or the technology has no label set,
// retrieve context, invoke the gateway once, and either merge the
// accepted label or queue the record for review.
func (o *Orchestrator) resolveSubtype(ctx context.Context, record *registry.PlantRecord, states map[string]State, review *ReviewQueue, classified map[string]bool) {
	if record.Subtype != registry.SubtypeNone {
		return
	}
	if len(registry.LabelSet(record.Technology)) == 0 {
		return
	}
	// Unmatched records are already queued for review; classifying
	// them anyway is optional and only fills in the subtype.
	if states[record.ID] == StateUnmatched && !o.options.ClassifyUnmatched {
		states[record.ID] = StateReviewPending
		return
	}
	// The external API is costed: never submit the same identifier
	// twice within a run.
	if classified[record.ID] {
		return
	}
	classified[record.ID] = true

	states[record.ID] = StateAwaitingContext

	contextText := ""
	if o.contexts != nil {
		text, err := o.contexts.Context(ctx, record.Name+" "+string(record.Technology)+" power plant")
		if err != nil {
			o.logger.Warn("context retrieval failed, classifying without context",
				"plant_id", record.ID, "error", err)
		} else {
			contextText = text
		}
	}

	result := o.gateway.Classify(ctx, classify.Request{
		PlantID:    record.ID,
		Name:       record.Name,
		Technology: record.Technology,
		Context:    contextText,
	})

	record.SubtypeConfidence = result.Confidence
	if result.Accepted() {
		record.Subtype = result.Label
		states[record.ID] = StateClassified
		return
	}

	reason := ReasonLowConfidence
	if result.Confidence == 0.0 {
		reason = ReasonClassificationUnavailable
	}
	review.Add(ReviewItem{
		PlantID:    record.ID,
		PlantName:  record.Name,
		Reason:     reason,
		Confidence: result.Confidence,
	})
	states[record.ID] = StateReviewPending
}

func stateForMethod(method registry.MatchMethod) State {
	switch method {
	case registry.MatchExact:
		return StateMatchedExact
	case registry.MatchFuzzy:
		return StateMatchedFuzzy
	default:
		return StateUnmatched
	}
}

// partition groups records by technology category. Matching and
// classification never cross partitions.
func partition(records []registry.PlantRecord) map[registry.Technology][]registry.PlantRecord {
	parts := make(map[registry.Technology][]registry.PlantRecord)
	for _, r := range records {
		parts[r.Technology] = append(parts[r.Technology], r)
	}
	return parts
}

// dedupeByID keeps the first record per identifier so the output is
// guaranteed one record per plant.
func dedupeByID(records []registry.PlantRecord, logger *slog.Logger) []registry.PlantRecord {
	seen := make(map[string]bool, len(records))
	out := records[:0:0]
	for _, r := range records {
		if seen[r.ID] {
			logger.Warn("duplicate source identifier dropped", "plant_id", r.ID, "name", r.Name)
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

func addStats(dst *RunStats, src RunStats) {
	dst.Total += src.Total
	dst.Exact += src.Exact
	dst.Fuzzy += src.Fuzzy
	dst.Unmatched += src.Unmatched
	dst.Classified += src.Classified
}
