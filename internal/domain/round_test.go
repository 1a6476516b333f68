package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundRecord_RankedAndFailedContestants(t *testing.T) {
	record := RoundRecord{
		Answers: []ContestantAnswer{
			{Model: "m2", Content: "fine"},
			{Model: "m3", Failed: true, FailureCause: "timeout"},
			{Model: "m4", Content: "also fine"},
		},
	}

	assert.Equal(t, []string{"m2", "m4"}, record.RankedContestants())
	assert.Equal(t, []string{"m3"}, record.FailedContestants())
}

func TestRoster_Without(t *testing.T) {
	roster := Roster{
		{Name: "m1"}, {Name: "m2"}, {Name: "m3"},
	}

	remaining := roster.Without("m2")

	assert.Equal(t, []string{"m1", "m3"}, remaining.Names())
	// Original roster is untouched.
	assert.Equal(t, []string{"m1", "m2", "m3"}, roster.Names())
}

func TestRoster_Lookup(t *testing.T) {
	roster := Roster{{Name: "m1", Provider: "openai"}}

	m, ok := roster.Lookup("m1")
	assert.True(t, ok)
	assert.Equal(t, "openai", m.Provider)

	_, ok = roster.Lookup("missing")
	assert.False(t, ok)
}
