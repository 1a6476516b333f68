package application

import (
	"sync"

	"github.com/zhmzlzn/modelarena/internal/domain"
)

// ScoreAggregator folds round outcomes into a cumulative score table.
// Applying rounds is commutative: the final table depends only on the
// set of applied rounds, not their arrival order, which is what allows
// parallel rounds to commit as they finish. It is safe for concurrent
// use.
type ScoreAggregator struct {
	mu     sync.Mutex
	policy domain.ScoringPolicy

	scores      domain.ScoreTable
	ranked      map[string]int
	unavailable map[string]int
}

// NewScoreAggregator creates an aggregator over the given roster names.
// Every model starts at zero so the standings include models that never
// score.
func NewScoreAggregator(policy domain.ScoringPolicy, models []string) *ScoreAggregator {
	agg := &ScoreAggregator{
		policy:      policy,
		scores:      make(domain.ScoreTable, len(models)),
		ranked:      make(map[string]int, len(models)),
		unavailable: make(map[string]int, len(models)),
	}
	for _, m := range models {
		agg.scores[m] = 0
	}
	return agg
}

// ApplyRound commits a round's outcome to the table. Scored rounds award
// points by ranking position and count an unavailable round for each
// failed contestant; abandoned and skipped rounds change no scores.
func (agg *ScoreAggregator) ApplyRound(record domain.RoundRecord) {
	agg.mu.Lock()
	defer agg.mu.Unlock()

	if record.Status != domain.RoundScored {
		return
	}

	for position, model := range record.Ranking {
		agg.scores[model] += agg.policy.PointsForRank(position)
		agg.ranked[model]++
	}
	for _, model := range record.FailedContestants() {
		agg.unavailable[model]++
	}
}

// Scores returns an independent snapshot of the raw score table.
func (agg *ScoreAggregator) Scores() domain.ScoreTable {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	return agg.scores.Clone()
}

// Standings returns the leaderboard in canonical order. When normalize
// is set, each ranked model additionally carries its score divided by
// the number of rounds it was ranked in.
func (agg *ScoreAggregator) Standings(normalize bool) []domain.Standing {
	agg.mu.Lock()
	defer agg.mu.Unlock()

	standings := make([]domain.Standing, 0, len(agg.scores))
	for model, score := range agg.scores {
		s := domain.Standing{
			Model:             model,
			Score:             score,
			RoundsRanked:      agg.ranked[model],
			RoundsUnavailable: agg.unavailable[model],
		}
		if normalize && s.RoundsRanked > 0 {
			s.NormalizedScore = float64(s.Score) / float64(s.RoundsRanked)
		}
		standings = append(standings, s)
	}
	domain.SortStandings(standings)
	return standings
}
