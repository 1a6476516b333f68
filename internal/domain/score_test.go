package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoringPolicy_PointsForRank(t *testing.T) {
	policy := DefaultScoringPolicy()

	tests := []struct {
		name     string
		position int
		want     int
	}{
		{name: "first place", position: 0, want: 3},
		{name: "second place", position: 1, want: 2},
		{name: "third place", position: 2, want: 1},
		{name: "fourth place gets other", position: 3, want: 0},
		{name: "far position gets other", position: 9, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.PointsForRank(tt.position))
		})
	}
}

func TestScoreTable_Clone(t *testing.T) {
	table := ScoreTable{"alpha": 3, "beta": 1}

	clone := table.Clone()
	clone["alpha"] = 99

	assert.Equal(t, 3, table["alpha"], "mutating the clone must not touch the original")
	assert.Equal(t, 99, clone["alpha"])
}

func TestSortStandings(t *testing.T) {
	tests := []struct {
		name      string
		standings []Standing
		wantOrder []string
	}{
		{
			name: "descending score",
			standings: []Standing{
				{Model: "a", Score: 1},
				{Model: "b", Score: 5},
				{Model: "c", Score: 3},
			},
			wantOrder: []string{"b", "c", "a"},
		},
		{
			name: "tie broken by fewer unavailable rounds",
			standings: []Standing{
				{Model: "a", Score: 4, RoundsUnavailable: 2},
				{Model: "b", Score: 4, RoundsUnavailable: 0},
			},
			wantOrder: []string{"b", "a"},
		},
		{
			name: "full tie broken alphabetically",
			standings: []Standing{
				{Model: "zeta", Score: 2},
				{Model: "alpha", Score: 2},
				{Model: "mid", Score: 2},
			},
			wantOrder: []string{"alpha", "mid", "zeta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortStandings(tt.standings)

			got := make([]string, len(tt.standings))
			for i, s := range tt.standings {
				got[i] = s.Model
			}
			assert.Equal(t, tt.wantOrder, got)
		})
	}
}

func TestSortStandings_Deterministic(t *testing.T) {
	make3 := func() []Standing {
		return []Standing{
			{Model: "c", Score: 2, RoundsUnavailable: 1},
			{Model: "a", Score: 2, RoundsUnavailable: 1},
			{Model: "b", Score: 2, RoundsUnavailable: 1},
		}
	}

	first := make3()
	SortStandings(first)

	// Same inputs in a different starting order must sort identically.
	second := []Standing{first[2], first[0], first[1]}
	SortStandings(second)

	assert.Equal(t, first, second)
}
