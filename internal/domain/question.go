package domain

// Question is one prompt posed to every contestant in a round.
// Questions are immutable and supplied by a question source before the
// run starts.
type Question struct {
	// ID identifies the question within a run. IDs are assigned by the
	// question source and are unique per run, not globally.
	ID int `json:"id" yaml:"id"`

	// Content is the question text sent to contestants.
	Content string `json:"content" yaml:"content"`

	// Topic is a free-form category tag, e.g. "logic" or "coding".
	Topic string `json:"topic" yaml:"topic"`

	// Difficulty is one of "easy", "medium", or "hard".
	Difficulty string `json:"difficulty" yaml:"difficulty"`
}
