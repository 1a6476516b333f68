package domain

import "sort"

// ScoringPolicy maps rank positions to point values. Positions beyond
// Third receive Other.
type ScoringPolicy struct {
	First  int `json:"first" yaml:"first" validate:"min=0"`
	Second int `json:"second" yaml:"second" validate:"min=0"`
	Third  int `json:"third" yaml:"third" validate:"min=0"`
	Other  int `json:"other" yaml:"other" validate:"min=0"`
}

// DefaultScoringPolicy returns the standard 3/2/1/0 table.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{First: 3, Second: 2, Third: 1, Other: 0}
}

// PointsForRank returns the points awarded for a zero-based rank position.
func (p ScoringPolicy) PointsForRank(position int) int {
	switch position {
	case 0:
		return p.First
	case 1:
		return p.Second
	case 2:
		return p.Third
	default:
		return p.Other
	}
}

// ScoreTable maps model names to cumulative scores. Scores only ever
// increase; a round never revokes previously awarded points.
type ScoreTable map[string]int

// Clone returns an independent copy of the table.
func (t ScoreTable) Clone() ScoreTable {
	out := make(ScoreTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Standing is one leaderboard row.
type Standing struct {
	// Model is the roster name.
	Model string `json:"model"`

	// Score is the cumulative raw score.
	Score int `json:"score"`

	// RoundsRanked counts rounds in which the model received a rank.
	RoundsRanked int `json:"rounds_ranked"`

	// RoundsUnavailable counts rounds in which the model's invocation
	// failed and it was excluded from ranking.
	RoundsUnavailable int `json:"rounds_unavailable"`

	// NormalizedScore is Score divided by RoundsRanked. It is populated
	// only when score normalization is enabled and the model was ranked
	// at least once.
	NormalizedScore float64 `json:"normalized_score,omitempty"`
}

// SortStandings orders standings into the canonical leaderboard order:
// descending score, then fewer unavailable rounds, then name. The order
// is total and deterministic for any input.
func SortStandings(standings []Standing) {
	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.RoundsUnavailable != b.RoundsUnavailable {
			return a.RoundsUnavailable < b.RoundsUnavailable
		}
		return a.Model < b.Model
	})
}
