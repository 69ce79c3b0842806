package domain

import "time"

// ItemOutcome says what happened to one source or position within a cycle.
type ItemOutcome string

const (
	OutcomeExecuted ItemOutcome = "executed"
	OutcomeSkipped  ItemOutcome = "skipped"
	OutcomeFailed   ItemOutcome = "failed"
)

// ItemResult is the per-item record a cycle driver collects instead of
// letting one item's error escape as a cycle-level failure.
type ItemResult struct {
	Item    string
	Outcome ItemOutcome
	Reason  string
	TxHash  string
	Err     error
}

// CycleReport aggregates one agent cycle. Reports are logged and handed to
// the cold-storage archiver; they are never consulted by decision logic.
type CycleReport struct {
	Agent      string
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []ItemResult
}

// Counts tallies the report by outcome.
func (r CycleReport) Counts() (executed, skipped, failed int) {
	for _, it := range r.Items {
		switch it.Outcome {
		case OutcomeExecuted:
			executed++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return
}
