package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhmzlzn/modelarena/internal/domain"
)

func newMemorySink(t *testing.T) *SQLiteSink {
	t.Helper()
	sink, err := NewSQLiteSink(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink
}

func sampleRecord(index int) domain.RoundRecord {
	return domain.RoundRecord{
		ID:         "round-" + string(rune('a'+index)),
		RoundIndex: index,
		Question:   domain.Question{ID: index + 1, Content: "why?", Topic: "science", Difficulty: "easy"},
		Judge:      "judge-model",
		Answers: []domain.ContestantAnswer{
			{Model: "m1", Content: "because"},
			{Model: "m2", Content: "therefore"},
			{Model: "m3", Failed: true, FailureCause: "timeout", Content: "(no answer)"},
		},
		Ranking:   []string{"m2", "m1"},
		Reasoning: "m2 was clearer",
		Status:    domain.RoundScored,
		Timestamp: time.Now().UTC(),
	}
}

func TestSQLiteSink_AppendAndReadBack(t *testing.T) {
	sink := newMemorySink(t)
	ctx := context.Background()

	scores := domain.ScoreTable{"m1": 2, "m2": 3, "m3": 0}
	require.NoError(t, sink.Append(ctx, sampleRecord(0), scores))

	count, err := sink.RoundCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := sink.Scores(ctx)
	require.NoError(t, err)
	assert.Equal(t, scores, stored)
}

func TestSQLiteSink_ScoresUpsert(t *testing.T) {
	sink := newMemorySink(t)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, sampleRecord(0), domain.ScoreTable{"m1": 3, "m2": 2}))
	require.NoError(t, sink.Append(ctx, sampleRecord(1), domain.ScoreTable{"m1": 5, "m2": 5}))

	stored, err := sink.Scores(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreTable{"m1": 5, "m2": 5}, stored)
}

func TestSQLiteSink_DuplicateRoundIDRejected(t *testing.T) {
	sink := newMemorySink(t)
	ctx := context.Background()

	record := sampleRecord(0)
	require.NoError(t, sink.Append(ctx, record, nil))

	err := sink.Append(ctx, record, nil)
	assert.Error(t, err, "round IDs are primary keys")
}

func TestSQLiteSink_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.db")
	sink, err := NewSQLiteSink(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, sampleRecord(0), domain.ScoreTable{"m1": 1}))
	require.NoError(t, sink.Close())

	// Reopen and confirm the data survived.
	reopened, err := NewSQLiteSink(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.RoundCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
