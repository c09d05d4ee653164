package reconcile

import "sync"

// ReviewReason says why a plant needs human adjudication.
type ReviewReason string

const (
	// ReasonUnmatched means no counterpart cleared the matcher thresholds.
	ReasonUnmatched ReviewReason = "unmatched"
	// ReasonLowConfidence means the oracle answered below the acceptance
	// threshold, or off the label set.
	ReasonLowConfidence ReviewReason = "low_confidence"
	// ReasonClassificationUnavailable means the oracle call failed or its
	// output was unparsable.
	ReasonClassificationUnavailable ReviewReason = "classification_unavailable"
)

// ReviewItem is one entry awaiting manual review.
type ReviewItem struct {
	PlantID    string       `json:"plant_id"`
	PlantName  string       `json:"plant_name"`
	Reason     ReviewReason `json:"reason"`
	Confidence float64      `json:"confidence,omitempty"`
}

// ReviewQueue collects plants automation could not resolve. Append-only
// during a run; consumed by human reviewers outside the system.
type ReviewQueue struct {
	mu    sync.Mutex
	items []ReviewItem
	seen  map[string]bool
}

// NewReviewQueue creates an empty queue.
func NewReviewQueue() *ReviewQueue {
	return &ReviewQueue{seen: make(map[string]bool)}
}

// Add appends an item. A plant already queued this run is not queued
// twice; the first reason wins.
func (q *ReviewQueue) Add(item ReviewItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.seen[item.PlantID] {
		return
	}
	q.seen[item.PlantID] = true
	q.items = append(q.items, item)
}

// Items returns a copy of the queue contents.
func (q *ReviewQueue) Items() []ReviewItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]ReviewItem, len(q.items))
	copy(out, q.items)
	return out
}

// Contains reports whether a plant is queued.
func (q *ReviewQueue) Contains(plantID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seen[plantID]
}

// Len returns the queue size.
func (q *ReviewQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
