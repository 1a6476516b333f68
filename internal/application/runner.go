package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zhmzlzn/modelarena/internal/domain"
	"github.com/zhmzlzn/modelarena/internal/ports"
)

// RunnerState tracks a runner through its lifecycle. A runner is
// single-use: it moves from idle through running to exactly one of the
// terminal states.
type RunnerState int32

const (
	// StateIdle means Run has not been called yet.
	StateIdle RunnerState = iota
	// StateRunning means a run is in progress.
	StateRunning
	// StateCompleted means the run processed every question.
	StateCompleted
	// StateAborted means the run stopped early.
	StateAborted
)

// String returns the state's display name.
func (s RunnerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// CompetitionRunner drives a full run: it sources questions, rotates
// judges across rounds, commits scores through the aggregator, and
// produces the final report. A report is produced for aborted runs too,
// covering whatever rounds finished.
type CompetitionRunner struct {
	cfg       *Config
	scheduler *RoundScheduler
	questions ports.QuestionSource
	sink      ports.RecordSink
	metrics   ports.MetricsCollector
	logger    *slog.Logger

	state atomic.Int32

	// mu guards the active roster and failure bookkeeping during a run.
	mu       sync.Mutex
	active   domain.Roster
	failures map[string]int
}

// RunnerOption customizes runner construction.
type RunnerOption func(*CompetitionRunner)

// WithRecordSink attaches a persistence sink. Sink failures are logged,
// never fatal.
func WithRecordSink(sink ports.RecordSink) RunnerOption {
	return func(r *CompetitionRunner) { r.sink = sink }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m ports.MetricsCollector) RunnerOption {
	return func(r *CompetitionRunner) { r.metrics = m }
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *CompetitionRunner) { r.logger = logger }
}

// NewCompetitionRunner creates a runner over validated configuration.
func NewCompetitionRunner(cfg *Config, scheduler *RoundScheduler, questions ports.QuestionSource, opts ...RunnerOption) *CompetitionRunner {
	r := &CompetitionRunner{
		cfg:       cfg,
		scheduler: scheduler,
		questions: questions,
		logger:    slog.Default(),
		failures:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the runner's current lifecycle state.
func (r *CompetitionRunner) State() RunnerState {
	return RunnerState(r.state.Load())
}

// Run executes the competition. It returns the report in every case;
// the error is non-nil only when the run aborted, and the report then
// covers the rounds that finished before the abort.
func (r *CompetitionRunner) Run(ctx context.Context) (*domain.CompetitionReport, error) {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, fmt.Errorf("%w: runner already used (state %s)", domain.ErrInvalidConfiguration, r.State())
	}

	report := &domain.CompetitionReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	rotation := r.cfg.Roster()
	if len(rotation) == 0 {
		return r.abort(report, nil, domain.AbortConfig, domain.ErrEmptyRoster)
	}
	if len(rotation) < r.cfg.Competition.MinModels {
		return r.abort(report, nil, domain.AbortConfig,
			fmt.Errorf("%w: %d models configured, need %d",
				domain.ErrInvalidConfiguration, len(rotation), r.cfg.Competition.MinModels))
	}
	r.active = rotation
	agg := NewScoreAggregator(r.cfg.Competition.Scoring, rotation.Names())

	questions, err := r.questions.Questions(ctx)
	if err != nil {
		return r.abort(report, agg, domain.AbortConfig, err)
	}
	if len(questions) == 0 {
		return r.abort(report, agg, domain.AbortConfig, domain.ErrNoQuestions)
	}
	report.TotalQuestions = len(questions)

	r.logger.Info("competition started",
		"run_id", report.ID,
		"models", len(rotation),
		"questions", len(questions),
		"parallel", r.cfg.Competition.Policies.ParallelExecution)

	records := make([]*domain.RoundRecord, len(questions))
	if r.cfg.Competition.Policies.ParallelExecution {
		err = r.runParallel(ctx, questions, records, agg)
	} else {
		err = r.runSequential(ctx, questions, records, agg)
	}

	r.collectRounds(report, records, agg)
	if err != nil {
		var aborted *domain.RunAbortedError
		if errors.As(err, &aborted) {
			return r.abort(report, nil, aborted.Reason, aborted.Err)
		}
		return r.abort(report, nil, domain.AbortCancelled, err)
	}

	report.Status = domain.RunCompleted
	report.CompletedAt = time.Now().UTC()
	r.state.Store(int32(StateCompleted))
	r.logger.Info("competition completed",
		"run_id", report.ID,
		"scored_rounds", report.ScoredRounds,
		"total_questions", report.TotalQuestions)
	return report, nil
}

// runSequential plays rounds one at a time in question order.
func (r *CompetitionRunner) runSequential(ctx context.Context, questions []domain.Question, records []*domain.RoundRecord, agg *ScoreAggregator) error {
	for i, q := range questions {
		roster, err := r.roundRoster(i)
		if err != nil {
			return err
		}

		record, err := r.playRound(ctx, roster, i, q, agg)
		if record != nil {
			records[i] = record
		}
		if err != nil {
			return &domain.RunAbortedError{Reason: domain.AbortCancelled, Err: err}
		}
	}
	return nil
}

// runParallel fans rounds out over a bounded worker group. Judge
// rotation still follows round indices, so results match sequential
// execution; only wall-clock time differs.
func (r *CompetitionRunner) runParallel(ctx context.Context, questions []domain.Question, records []*domain.RoundRecord, agg *ScoreAggregator) error {
	g, gctx := errgroup.WithContext(ctx)
	limit := r.cfg.Competition.Policies.MaxConcurrency
	if limit <= 0 {
		limit = len(questions)
	}
	g.SetLimit(limit)

	for i, q := range questions {
		g.Go(func() error {
			roster, err := r.roundRoster(i)
			if err != nil {
				return err
			}

			record, err := r.playRound(gctx, roster, i, q, agg)
			if record != nil {
				records[i] = record
			}
			if err != nil {
				return &domain.RunAbortedError{Reason: domain.AbortCancelled, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// playRound executes one round and commits its outcome: score changes,
// failure bookkeeping, and persistence. The returned error is non-nil
// only on cancellation.
func (r *CompetitionRunner) playRound(ctx context.Context, roster domain.Roster, index int, question domain.Question, agg *ScoreAggregator) (*domain.RoundRecord, error) {
	started := time.Now()
	record, err := r.scheduler.ExecuteRound(ctx, roster, index, question)

	agg.ApplyRound(record)
	r.trackFailures(record)
	r.observeRound(record, time.Since(started))

	if r.sink != nil {
		if sinkErr := r.sink.Append(ctx, record, agg.Scores()); sinkErr != nil {
			r.logger.Error("failed to persist round record",
				"round", index, "error", sinkErr)
		}
	}
	return &record, err
}

// roundRoster snapshots the active roster for a round, failing when it
// has shrunk below the minimum.
func (r *CompetitionRunner) roundRoster(roundIndex int) (domain.Roster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) < r.cfg.Competition.MinModels {
		return nil, &domain.RunAbortedError{
			Reason: domain.AbortInsufficientModels,
			Err: fmt.Errorf("round %d: %d models active, need %d",
				roundIndex, len(r.active), r.cfg.Competition.MinModels),
		}
	}

	roster := make(domain.Roster, len(r.active))
	copy(roster, r.active)
	return roster, nil
}

// trackFailures updates consecutive-failure counts from a round outcome
// and removes models that keep failing. A successful answer or judgment
// resets the model's count.
func (r *CompetitionRunner) trackFailures(record domain.RoundRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range record.RankedContestants() {
		r.failures[name] = 0
	}
	for _, name := range record.FailedContestants() {
		r.failures[name]++
	}

	if record.Judge != "" {
		if record.Status == domain.RoundAbandoned &&
			strings.Contains(record.FailureReason, string(domain.ReasonJudgeUnavailable)) {
			r.failures[record.Judge]++
		} else if record.Status == domain.RoundScored {
			r.failures[record.Judge] = 0
		}
	}

	threshold := r.cfg.Competition.RemoveAfterFailures
	for name, count := range r.failures {
		if count < threshold {
			continue
		}
		if _, ok := r.active.Lookup(name); !ok {
			continue
		}
		r.active = r.active.Without(name)
		r.logger.Warn("model removed from active roster",
			"model", name, "consecutive_failures", count)
	}
}

// observeRound emits per-round metrics.
func (r *CompetitionRunner) observeRound(record domain.RoundRecord, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	labels := map[string]string{"status": string(record.Status)}
	r.metrics.RecordCounter("competition_rounds_total", 1, labels)
	r.metrics.RecordLatency("competition_round", elapsed, labels)
	if record.DegradedParse {
		r.metrics.RecordCounter("competition_degraded_parses_total", 1, nil)
	}
}

// collectRounds fills the report from the executed rounds, in round
// order, and takes the final standings snapshot.
func (r *CompetitionRunner) collectRounds(report *domain.CompetitionReport, records []*domain.RoundRecord, agg *ScoreAggregator) {
	for _, rec := range records {
		if rec == nil {
			continue
		}
		report.Rounds = append(report.Rounds, *rec)
		if rec.Status == domain.RoundScored {
			report.ScoredRounds++
		}
	}
	report.Standings = agg.Standings(r.cfg.Competition.Policies.NormalizeScores)
}

// abort finalizes the report for an early exit and returns the run
// error. The partial report keeps every committed round and score.
func (r *CompetitionRunner) abort(report *domain.CompetitionReport, agg *ScoreAggregator, reason domain.AbortReason, cause error) (*domain.CompetitionReport, error) {
	if agg != nil {
		report.Standings = agg.Standings(r.cfg.Competition.Policies.NormalizeScores)
	}
	report.Status = domain.RunAborted
	report.AbortReason = string(reason)
	report.CompletedAt = time.Now().UTC()
	r.state.Store(int32(StateAborted))

	err := &domain.RunAbortedError{Reason: reason, Err: cause}
	r.logger.Error("competition aborted", "run_id", report.ID, "reason", reason, "error", cause)
	return report, err
}
