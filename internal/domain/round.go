package domain

import "time"

// RoundStatus tags how a round ended.
type RoundStatus string

const (
	// RoundScored means the round produced a ranking that was applied to
	// the score table.
	RoundScored RoundStatus = "scored"

	// RoundAbandoned means the judge was unavailable after retries; the
	// round contributes no score changes.
	RoundAbandoned RoundStatus = "abandoned"

	// RoundSkipped means too few models were available to run the round.
	RoundSkipped RoundStatus = "skipped"
)

// ContestantAnswer holds one contestant's response to a round's question.
// Failed answers keep their slot so the record shows exactly which models
// were asked, but they are excluded from judging and ranking.
type ContestantAnswer struct {
	// Model is the contestant's roster name.
	Model string `json:"model"`

	// Content is the answer text, or a placeholder when Failed is true.
	Content string `json:"content"`

	// Failed marks the contestant's invocation as unsuccessful after the
	// retry budget was exhausted.
	Failed bool `json:"failed,omitempty"`

	// FailureCause carries the invocation error text for failed answers.
	FailureCause string `json:"failure_cause,omitempty"`
}

// RoundRecord is the immutable outcome of processing one question.
// It is created once by the runner, then handed to the aggregator and to
// the persistence sink; nothing mutates it afterwards.
type RoundRecord struct {
	// ID is a UUID assigned when the record is created.
	ID string `json:"id"`

	// RoundIndex is the zero-based position of the round in the question
	// sequence. Judge rotation and report ordering both key off it.
	RoundIndex int `json:"round_index"`

	// Question is the question posed in this round.
	Question Question `json:"question"`

	// Judge is the roster name of the model that ranked the answers.
	// The judge is never also a contestant.
	Judge string `json:"judge"`

	// Answers lists one entry per contestant in invocation order.
	Answers []ContestantAnswer `json:"answers"`

	// Ranking orders the successful contestants best-first. It is always
	// a permutation of exactly the non-failed contestant names; failed
	// contestants receive no rank.
	Ranking []string `json:"ranking,omitempty"`

	// Reasoning is the judge's justification text.
	Reasoning string `json:"reasoning,omitempty"`

	// Status records how the round ended.
	Status RoundStatus `json:"status"`

	// FailureReason explains skipped and abandoned rounds.
	FailureReason string `json:"failure_reason,omitempty"`

	// DegradedParse is set when the ranking came from the deterministic
	// fallback because the judge output had no recognizable structure.
	DegradedParse bool `json:"degraded_parse,omitempty"`

	// Timestamp records when the round completed.
	Timestamp time.Time `json:"timestamp"`
}

// RankedContestants returns the names of contestants eligible for ranking,
// i.e. those whose invocation succeeded, in invocation order.
func (r RoundRecord) RankedContestants() []string {
	out := make([]string, 0, len(r.Answers))
	for _, a := range r.Answers {
		if !a.Failed {
			out = append(out, a.Model)
		}
	}
	return out
}

// FailedContestants returns the names of contestants whose invocation
// failed this round, in invocation order.
func (r RoundRecord) FailedContestants() []string {
	var out []string
	for _, a := range r.Answers {
		if a.Failed {
			out = append(out, a.Model)
		}
	}
	return out
}
