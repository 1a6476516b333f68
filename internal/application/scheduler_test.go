package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhmzlzn/modelarena/internal/domain"
)

// stubInvoker routes invocations to per-model handler functions and
// records every call.
type stubInvoker struct {
	mu       sync.Mutex
	handlers map[string]func(prompt string) (string, error)
	calls    []string
}

func newStubInvoker() *stubInvoker {
	return &stubInvoker{handlers: make(map[string]func(string) (string, error))}
}

func (s *stubInvoker) respond(model, response string) {
	s.handlers[model] = func(string) (string, error) { return response, nil }
}

func (s *stubInvoker) fail(model string, err error) {
	s.handlers[model] = func(string) (string, error) { return "", err }
}

func (s *stubInvoker) Invoke(ctx context.Context, model domain.ModelIdentity, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.calls = append(s.calls, model.Name)
	handler := s.handlers[model.Name]
	s.mu.Unlock()
	if handler == nil {
		return "", fmt.Errorf("no handler for model %s", model.Name)
	}
	return handler(prompt)
}

func (s *stubInvoker) callsFor(model string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == model {
			n++
		}
	}
	return n
}

func testRoster(names ...string) domain.Roster {
	roster := make(domain.Roster, 0, len(names))
	for _, n := range names {
		roster = append(roster, domain.ModelIdentity{Name: n, Provider: "openai", Model: n})
	}
	return roster
}

func testQuestion() domain.Question {
	return domain.Question{ID: 1, Content: "What causes tides?", Topic: "science", Difficulty: "easy"}
}

func jsonRanking(names ...string) string {
	out := `{"rankings":[`
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"model_name":%q,"rank":%d}`, n, i+1)
	}
	return out + `],"reasoning":"test verdict"}`
}

func newTestScheduler(inv *stubInvoker, minModels int) *RoundScheduler {
	return NewRoundScheduler(inv, NewJudgeOutputParser(), slog.New(slog.DiscardHandler), minModels, false, false, nil)
}

func TestRoundScheduler_PlanRound_Rotation(t *testing.T) {
	s := newTestScheduler(newStubInvoker(), 3)
	roster := testRoster("m1", "m2", "m3", "m4")

	judgeCounts := make(map[string]int)
	for i := 0; i < len(roster)*2; i++ {
		plan, err := s.PlanRound(roster, i)
		require.NoError(t, err)
		judgeCounts[plan.Judge.Name]++

		for _, c := range plan.Contestants {
			assert.NotEqual(t, plan.Judge.Name, c.Name, "the judge must never compete")
		}
		assert.Len(t, plan.Contestants, len(roster)-1)
	}

	// Two full cycles: every model judges exactly twice.
	for _, m := range roster {
		assert.Equal(t, 2, judgeCounts[m.Name])
	}
}

func TestRoundScheduler_PlanRound_ContestantsKeepRosterOrder(t *testing.T) {
	s := newTestScheduler(newStubInvoker(), 3)
	roster := testRoster("m1", "m2", "m3", "m4")

	plan, err := s.PlanRound(roster, 1)
	require.NoError(t, err)

	assert.Equal(t, "m2", plan.Judge.Name)
	assert.Equal(t, []string{"m1", "m3", "m4"}, plan.Contestants.Names())
}

func TestRoundScheduler_PlanRound_InsufficientModels(t *testing.T) {
	s := newTestScheduler(newStubInvoker(), 3)

	_, err := s.PlanRound(testRoster("m1", "m2"), 0)

	var roundErr *domain.RoundError
	require.ErrorAs(t, err, &roundErr)
	assert.Equal(t, domain.ReasonInsufficientModels, roundErr.Reason)
}

func TestRoundScheduler_ExecuteRound_Scored(t *testing.T) {
	inv := newStubInvoker()
	inv.respond("m2", "answer from m2")
	inv.respond("m3", "answer from m3")
	inv.respond("m1", jsonRanking("m3", "m2")) // judge for round 0

	s := newTestScheduler(inv, 3)
	record, err := s.ExecuteRound(context.Background(), testRoster("m1", "m2", "m3"), 0, testQuestion())

	require.NoError(t, err)
	assert.Equal(t, domain.RoundScored, record.Status)
	assert.Equal(t, "m1", record.Judge)
	assert.Equal(t, []string{"m3", "m2"}, record.Ranking)
	assert.Equal(t, "test verdict", record.Reasoning)
	assert.False(t, record.DegradedParse)
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Timestamp.IsZero())
}

func TestRoundScheduler_ExecuteRound_FailedContestantGetsPlaceholder(t *testing.T) {
	inv := newStubInvoker()
	inv.respond("m2", "answer from m2")
	inv.fail("m3", errors.New("provider down"))
	inv.respond("m4", "answer from m4")
	inv.respond("m1", jsonRanking("m4", "m2"))

	s := newTestScheduler(inv, 3)
	record, err := s.ExecuteRound(context.Background(), testRoster("m1", "m2", "m3", "m4"), 0, testQuestion())

	require.NoError(t, err)
	assert.Equal(t, domain.RoundScored, record.Status)
	assert.Equal(t, []string{"m4", "m2"}, record.Ranking,
		"failed contestants must not appear in the ranking")

	require.Len(t, record.Answers, 3)
	assert.Equal(t, []string{"m3"}, record.FailedContestants())
	for _, a := range record.Answers {
		if a.Model == "m3" {
			assert.True(t, a.Failed)
			assert.Equal(t, failedAnswerPlaceholder, a.Content)
			assert.Contains(t, a.FailureCause, "provider down")
		}
	}
}

func TestRoundScheduler_ExecuteRound_JudgeUnavailable(t *testing.T) {
	inv := newStubInvoker()
	inv.respond("m2", "answer")
	inv.respond("m3", "answer")
	inv.fail("m1", errors.New("judge offline"))

	s := newTestScheduler(inv, 3)
	record, err := s.ExecuteRound(context.Background(), testRoster("m1", "m2", "m3"), 0, testQuestion())

	require.NoError(t, err)
	assert.Equal(t, domain.RoundAbandoned, record.Status)
	assert.Empty(t, record.Ranking)
	assert.Contains(t, record.FailureReason, string(domain.ReasonJudgeUnavailable))
}

func TestRoundScheduler_ExecuteRound_AllContestantsFail(t *testing.T) {
	inv := newStubInvoker()
	inv.fail("m2", errors.New("down"))
	inv.fail("m3", errors.New("down"))
	inv.respond("m1", "should never be called")

	s := newTestScheduler(inv, 3)
	record, err := s.ExecuteRound(context.Background(), testRoster("m1", "m2", "m3"), 0, testQuestion())

	require.NoError(t, err)
	assert.Equal(t, domain.RoundAbandoned, record.Status)
	assert.Equal(t, 0, inv.callsFor("m1"), "the judge is not invoked without answers to rank")
}

func TestRoundScheduler_ExecuteRound_SkippedWhenRosterTooSmall(t *testing.T) {
	s := newTestScheduler(newStubInvoker(), 3)

	record, err := s.ExecuteRound(context.Background(), testRoster("m1", "m2"), 4, testQuestion())

	require.NoError(t, err)
	assert.Equal(t, domain.RoundSkipped, record.Status)
	assert.Equal(t, 4, record.RoundIndex)
	assert.Contains(t, record.FailureReason, string(domain.ReasonInsufficientModels))
}

func TestRoundScheduler_ExecuteRound_RandomizedPresentation(t *testing.T) {
	inv := newStubInvoker()
	inv.respond("m2", "answer")
	inv.respond("m3", "answer")
	inv.respond("m4", "answer")
	inv.respond("m1", "no structure here")

	s := NewRoundScheduler(inv, NewJudgeOutputParser(), slog.New(slog.DiscardHandler), 3, false, true, nil)

	// Whatever order the answers were shown in, the ranking is a
	// permutation of exactly the successful contestants.
	for i := 0; i < 10; i++ {
		record, err := s.ExecuteRound(context.Background(), testRoster("m1", "m2", "m3", "m4"), 0, testQuestion())
		require.NoError(t, err)
		assert.Equal(t, domain.RoundScored, record.Status)
		assert.ElementsMatch(t, []string{"m2", "m3", "m4"}, record.Ranking)
	}
}

func TestRoundScheduler_ExecuteRound_DegradedParseStillScores(t *testing.T) {
	inv := newStubInvoker()
	inv.respond("m2", "answer")
	inv.respond("m3", "answer")
	inv.respond("m1", "I cannot decide between these answers.")

	s := newTestScheduler(inv, 3)
	record, err := s.ExecuteRound(context.Background(), testRoster("m1", "m2", "m3"), 0, testQuestion())

	require.NoError(t, err)
	assert.Equal(t, domain.RoundScored, record.Status)
	assert.True(t, record.DegradedParse)
	assert.Equal(t, []string{"m2", "m3"}, record.Ranking, "fallback keeps invocation order")
}
