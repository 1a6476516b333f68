package domain

import (
	"errors"
	"fmt"
)

// Common domain errors for competition runs.
var (
	// ErrEmptyRoster indicates that no models were configured.
	ErrEmptyRoster = errors.New("empty roster")

	// ErrNoQuestions indicates that the question source produced nothing.
	ErrNoQuestions = errors.New("no questions available")

	// ErrInvalidConfiguration indicates that configuration is invalid or
	// incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// RoundErrorReason classifies why a round could not be scored.
type RoundErrorReason string

const (
	// ReasonJudgeUnavailable means the judge invocation failed after the
	// retry budget was exhausted.
	ReasonJudgeUnavailable RoundErrorReason = "judge_unavailable"

	// ReasonInsufficientModels means fewer models than the configured
	// minimum were available for the round.
	ReasonInsufficientModels RoundErrorReason = "insufficient_models"

	// ReasonParseDegraded tags a round whose ranking came from the
	// deterministic fallback. It is observability metadata, not a
	// failure: degraded rounds still score.
	ReasonParseDegraded RoundErrorReason = "parse_degraded"
)

// RoundError reports a per-round failure. Round errors are never fatal
// to the run; the runner records them and moves to the next question.
type RoundError struct {
	// RoundIndex identifies the failed round.
	RoundIndex int

	// Reason classifies the failure.
	Reason RoundErrorReason

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("round %d: %s: %v", e.RoundIndex, e.Reason, e.Err)
	}
	return fmt.Sprintf("round %d: %s", e.RoundIndex, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *RoundError) Unwrap() error { return e.Err }

// NewRoundError creates a RoundError with the given details.
func NewRoundError(roundIndex int, reason RoundErrorReason, err error) *RoundError {
	return &RoundError{RoundIndex: roundIndex, Reason: reason, Err: err}
}

// AbortReason classifies why a run aborted.
type AbortReason string

const (
	// AbortConfig means the run never started: invalid configuration or
	// a roster below the minimum size.
	AbortConfig AbortReason = "config_error"

	// AbortInsufficientModels means the active roster fell below the
	// minimum mid-run after repeated invocation failures.
	AbortInsufficientModels AbortReason = "insufficient_models"

	// AbortCancelled means the run-level cancellation signal fired.
	AbortCancelled AbortReason = "cancelled"
)

// RunAbortedError reports a run-level failure. Already committed round
// records and score updates are not rolled back; the partial report
// remains valid.
type RunAbortedError struct {
	// Reason classifies the abort.
	Reason AbortReason

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RunAbortedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("run aborted: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("run aborted: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *RunAbortedError) Unwrap() error { return e.Err }
