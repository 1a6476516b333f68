package domain

import "time"

// RunStatus is the terminal state of a competition run.
type RunStatus string

const (
	// RunCompleted means every question was processed, even if some
	// rounds were skipped or abandoned.
	RunCompleted RunStatus = "completed"

	// RunAborted means the run stopped early: a configuration failure,
	// cancellation, or the active roster falling below the minimum.
	RunAborted RunStatus = "aborted"
)

// CompetitionReport is the final, immutable output of a run. It is
// produced exactly once, for completed and aborted runs alike, so that
// downstream consumers always see whatever rounds did finish.
type CompetitionReport struct {
	// ID is a UUID assigned at run start.
	ID string `json:"id"`

	// Status is the run's terminal state.
	Status RunStatus `json:"status"`

	// AbortReason explains aborted runs.
	AbortReason string `json:"abort_reason,omitempty"`

	// Rounds holds every round record in round-index order, including
	// skipped and abandoned rounds tagged with their reasons.
	Rounds []RoundRecord `json:"rounds"`

	// Standings is the final leaderboard in canonical order.
	Standings []Standing `json:"standings"`

	// TotalQuestions is the number of questions supplied to the run.
	TotalQuestions int `json:"total_questions"`

	// ScoredRounds counts rounds that contributed score changes.
	ScoredRounds int `json:"scored_rounds"`

	// StartedAt and CompletedAt bound the run's wall-clock time.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}
