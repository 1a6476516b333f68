package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zhmzlzn/modelarena/internal/domain"
	"github.com/zhmzlzn/modelarena/internal/ports"
)

// failedAnswerPlaceholder fills the answer slot of a contestant whose
// invocation failed, so round records always show who was asked.
const failedAnswerPlaceholder = "(no answer: model invocation failed)"

// RoundPlan is the judge and contestant assignment for one round.
type RoundPlan struct {
	// Judge ranks the answers and never answers itself.
	Judge domain.ModelIdentity
	// Contestants answer the question, in rotation order minus the judge.
	Contestants domain.Roster
}

// RoundScheduler plans and executes individual rounds: it assigns the
// judge by rotation, fans contestant invocations out concurrently,
// collects answers, and has the judge rank them.
type RoundScheduler struct {
	invoker   ports.ModelInvoker
	parser    *JudgeOutputParser
	logger    *slog.Logger
	minModels int
	anonymize bool
	randomize bool
	options   map[string]any
}

// NewRoundScheduler creates a scheduler. When randomize is set, the
// answers are presented to the judge in a fresh random order each round
// to avoid positional bias. The options map is passed to every model
// invocation and carries tunables like max_tokens.
func NewRoundScheduler(
	invoker ports.ModelInvoker,
	parser *JudgeOutputParser,
	logger *slog.Logger,
	minModels int,
	anonymize bool,
	randomize bool,
	options map[string]any,
) *RoundScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoundScheduler{
		invoker:   invoker,
		parser:    parser,
		logger:    logger,
		minModels: minModels,
		anonymize: anonymize,
		randomize: randomize,
		options:   options,
	}
}

// PlanRound assigns the judge and contestants for a round. The judge
// rotates through the roster by round index, so over a full cycle every
// model judges exactly once. Everyone else competes.
func (s *RoundScheduler) PlanRound(roster domain.Roster, roundIndex int) (RoundPlan, error) {
	if len(roster) < s.minModels {
		return RoundPlan{}, domain.NewRoundError(roundIndex, domain.ReasonInsufficientModels,
			fmt.Errorf("%d models available, need %d", len(roster), s.minModels))
	}

	judge := roster[roundIndex%len(roster)]
	return RoundPlan{
		Judge:       judge,
		Contestants: roster.Without(judge.Name),
	}, nil
}

// ExecuteRound runs one complete round: plan, collect answers, judge,
// parse. It always returns a usable record; individual model failures
// degrade the round rather than erroring. The error return is reserved
// for context cancellation.
func (s *RoundScheduler) ExecuteRound(ctx context.Context, roster domain.Roster, roundIndex int, question domain.Question) (domain.RoundRecord, error) {
	record := domain.RoundRecord{
		ID:         uuid.NewString(),
		RoundIndex: roundIndex,
		Question:   question,
	}

	plan, err := s.PlanRound(roster, roundIndex)
	if err != nil {
		record.Status = domain.RoundSkipped
		record.FailureReason = err.Error()
		record.Timestamp = time.Now().UTC()
		s.logger.Warn("round skipped", "round", roundIndex, "reason", err)
		return record, nil
	}
	record.Judge = plan.Judge.Name

	record.Answers = s.collectAnswers(ctx, plan.Contestants, question, roundIndex)
	if err := ctx.Err(); err != nil {
		record.Status = domain.RoundAbandoned
		record.FailureReason = err.Error()
		record.Timestamp = time.Now().UTC()
		return record, err
	}

	successful := filterSuccessful(record.Answers)
	if s.randomize {
		rand.Shuffle(len(successful), func(i, j int) {
			successful[i], successful[j] = successful[j], successful[i]
		})
	}
	if len(successful) == 0 {
		record.Status = domain.RoundAbandoned
		record.FailureReason = "no contestant produced an answer"
		record.Timestamp = time.Now().UTC()
		s.logger.Warn("round abandoned", "round", roundIndex, "reason", record.FailureReason)
		return record, nil
	}

	judgment, err := s.judge(ctx, plan.Judge, question, successful)
	if err != nil {
		record.Status = domain.RoundAbandoned
		record.FailureReason = domain.NewRoundError(roundIndex, domain.ReasonJudgeUnavailable, err).Error()
		record.Timestamp = time.Now().UTC()
		s.logger.Warn("round abandoned",
			"round", roundIndex, "judge", plan.Judge.Name, "error", err)
		return record, ctx.Err()
	}

	parsed := s.parser.Parse(judgment, contestantNames(successful))
	record.Ranking = parsed.Order
	record.Reasoning = parsed.Reasoning
	record.DegradedParse = parsed.Degraded
	record.Status = domain.RoundScored
	record.Timestamp = time.Now().UTC()

	s.logger.Info("round scored",
		"round", roundIndex,
		"judge", plan.Judge.Name,
		"contestants", len(record.Answers),
		"failed", len(record.FailedContestants()),
		"degraded_parse", record.DegradedParse)
	return record, nil
}

// collectAnswers invokes every contestant concurrently and returns one
// answer slot per contestant in invocation order. Failures become
// placeholder entries instead of aborting the round.
func (s *RoundScheduler) collectAnswers(ctx context.Context, contestants domain.Roster, question domain.Question, roundIndex int) []domain.ContestantAnswer {
	answers := make([]domain.ContestantAnswer, len(contestants))

	g, gctx := errgroup.WithContext(ctx)
	for i, contestant := range contestants {
		g.Go(func() error {
			answers[i] = s.askContestant(gctx, contestant, question, roundIndex)
			return nil
		})
	}
	// Goroutines never return errors; failures live in the answer slots.
	_ = g.Wait()

	return answers
}

// askContestant invokes one contestant and converts any failure into a
// placeholder answer.
func (s *RoundScheduler) askContestant(ctx context.Context, contestant domain.ModelIdentity, question domain.Question, roundIndex int) domain.ContestantAnswer {
	prompt, err := BuildAnswerPrompt(question)
	if err != nil {
		return domain.ContestantAnswer{
			Model:        contestant.Name,
			Content:      failedAnswerPlaceholder,
			Failed:       true,
			FailureCause: err.Error(),
		}
	}

	response, err := s.invoker.Invoke(ctx, contestant, prompt, s.options)
	if err != nil {
		s.logger.Warn("contestant failed",
			"round", roundIndex, "model", contestant.Name, "error", err)
		return domain.ContestantAnswer{
			Model:        contestant.Name,
			Content:      failedAnswerPlaceholder,
			Failed:       true,
			FailureCause: err.Error(),
		}
	}

	return domain.ContestantAnswer{Model: contestant.Name, Content: response}
}

// judge renders the judging prompt and invokes the judge model.
func (s *RoundScheduler) judge(ctx context.Context, judge domain.ModelIdentity, question domain.Question, answers []domain.ContestantAnswer) (string, error) {
	prompt, err := BuildJudgePrompt(question, answers, s.anonymize)
	if err != nil {
		return "", err
	}
	return s.invoker.Invoke(ctx, judge, prompt, s.options)
}

// filterSuccessful returns the answers whose invocation succeeded, in
// invocation order.
func filterSuccessful(answers []domain.ContestantAnswer) []domain.ContestantAnswer {
	out := make([]domain.ContestantAnswer, 0, len(answers))
	for _, a := range answers {
		if !a.Failed {
			out = append(out, a)
		}
	}
	return out
}

// contestantNames projects answers to their model names.
func contestantNames(answers []domain.ContestantAnswer) []string {
	names := make([]string, 0, len(answers))
	for _, a := range answers {
		names = append(names, a.Model)
	}
	return names
}
