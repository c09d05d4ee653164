package reconcile

// State is a record's position in the resolution pipeline.
type State string

const (
	StatePending         State = "pending"
	StateMatchedExact    State = "matched_exact"
	StateMatchedFuzzy    State = "matched_fuzzy"
	StateUnmatched       State = "unmatched"
	StateAwaitingContext State = "awaiting_context"
	StateClassified      State = "classified"
	StateReviewPending   State = "review_pending"
)

// legalTransitions encodes the record state machine. Matching outcomes
// leave Pending; records lacking a subtype pass through AwaitingContext
// before classification settles them. Anything else is a bug.
var legalTransitions = map[State][]State{
	StatePending:         {StateMatchedExact, StateMatchedFuzzy, StateUnmatched},
	StateMatchedExact:    {StateAwaitingContext},
	StateMatchedFuzzy:    {StateAwaitingContext},
	StateUnmatched:       {StateAwaitingContext, StateReviewPending},
	StateAwaitingContext: {StateClassified, StateReviewPending},
}

// Terminal reports whether no further automated transition applies.
func (s State) Terminal() bool {
	switch s {
	case StateClassified, StateReviewPending:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to State) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
