// Command arena runs an LLM knowledge competition: models take turns
// judging while the rest answer, scores accumulate across rounds, and
// the final leaderboard is written as a JSON report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/zhmzlzn/modelarena/infrastructure/llm"
	"github.com/zhmzlzn/modelarena/infrastructure/middleware"
	"github.com/zhmzlzn/modelarena/infrastructure/persistence"
	"github.com/zhmzlzn/modelarena/infrastructure/questions"
	"github.com/zhmzlzn/modelarena/internal/application"
	"github.com/zhmzlzn/modelarena/internal/domain"
	"github.com/zhmzlzn/modelarena/internal/ports"
)

func main() {
	var (
		configPath  = flag.String("config", "arena.yaml", "Path to the competition configuration file")
		reportPath  = flag.String("report", "report.json", "Path to write the final JSON report")
		metricsAddr = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on (empty disables)")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		verbose     = flag.Bool("v", false, "Shorthand for -log-level=debug")
	)
	flag.Parse()

	logger := newLogger(*logLevel, *verbose)
	slog.SetDefault(logger)

	if err := run(*configPath, *reportPath, *metricsAddr, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, reportPath, metricsAddr string, logger *slog.Logger) error {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector, registry := middleware.NewPrometheusMetrics()
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("serving metrics", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	invoker, err := buildInvoker(cfg, collector)
	if err != nil {
		return err
	}

	source := buildQuestionSource(cfg, invoker, logger)

	var runnerOpts []application.RunnerOption
	runnerOpts = append(runnerOpts, application.WithLogger(logger), application.WithMetrics(collector))
	if cfg.Persistence.Path != "" {
		sink, err := buildSink(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				logger.Error("failed to close record sink", "error", err)
			}
		}()
		runnerOpts = append(runnerOpts, application.WithRecordSink(sink))
	}

	scheduler := application.NewRoundScheduler(
		invoker,
		application.NewJudgeOutputParser(),
		logger,
		cfg.Competition.MinModels,
		cfg.Competition.Policies.AnonymizeContestants,
		cfg.Competition.Policies.RandomizeJudgeOrder,
		invocationOptions(cfg),
	)
	runner := application.NewCompetitionRunner(cfg, scheduler, source, runnerOpts...)

	report, runErr := runner.Run(ctx)
	if report != nil {
		if err := writeReport(report, reportPath); err != nil {
			logger.Error("failed to write report", "error", err)
		} else {
			logger.Info("report written", "path", reportPath)
		}
		printStandings(report)
	}
	return runErr
}

// buildInvoker assembles provider clients and the retrying invoker from
// configuration.
func buildInvoker(cfg *application.Config, collector ports.MetricsCollector) (*llm.Invoker, error) {
	mw := []llm.Middleware{llm.MetricsMiddleware(collector), llm.TracingMiddleware("modelarena")}
	if rps := cfg.Invocation.RequestsPerSecond; rps > 0 {
		mw = append([]llm.Middleware{llm.RateLimitMiddleware(rate.Limit(rps), 1)}, mw...)
	}

	clients, err := llm.BuildClients(cfg.Roster(), llm.BuildOptions{
		Timeout:    cfg.Invocation.AttemptTimeout(),
		Middleware: mw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build model clients: %w", err)
	}

	policy := llm.DefaultRetryPolicy()
	if cfg.Invocation.MaxRetries > 0 {
		policy.MaxRetries = cfg.Invocation.MaxRetries
	}
	if cfg.Invocation.BaseDelayMs > 0 {
		policy.BaseDelay = time.Duration(cfg.Invocation.BaseDelayMs) * time.Millisecond
	}
	if cfg.Invocation.MaxDelayMs > 0 {
		policy.MaxDelay = time.Duration(cfg.Invocation.MaxDelayMs) * time.Millisecond
	}

	return llm.NewInvoker(clients, cfg.Invocation.AttemptTimeout(), policy), nil
}

// buildQuestionSource wires the bank and, when configured, the
// model-backed generator on top of it.
func buildQuestionSource(cfg *application.Config, invoker ports.ModelInvoker, logger *slog.Logger) ports.QuestionSource {
	q := cfg.Competition.Questions

	opts := []questions.BankOption{}
	if len(q.Topics) > 0 {
		opts = append(opts, questions.WithTopics(q.Topics))
	}
	if q.Difficulty != "" {
		opts = append(opts, questions.WithDifficulty(q.Difficulty))
	}

	var bank ports.QuestionSource
	if q.BankPath != "" {
		loaded, err := questions.LoadBank(q.BankPath, q.Count, opts...)
		if err != nil {
			logger.Warn("failed to load question bank file, using built-in bank",
				"path", q.BankPath, "error", err)
			bank = questions.NewBank(q.Count, opts...)
		} else {
			bank = loaded
		}
	} else {
		bank = questions.NewBank(q.Count, opts...)
	}

	if !q.Generate {
		return bank
	}
	author := cfg.Roster()[0]
	return questions.NewGenerator(invoker, author, bank, logger, q.Count, q.Topics, q.Difficulty)
}

// buildSink opens the SQLite sink, asynchronous when configured.
func buildSink(cfg *application.Config, logger *slog.Logger) (ports.RecordSink, error) {
	sink, err := persistence.NewSQLiteSink(cfg.Persistence.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	if !cfg.Persistence.Async {
		return sink, nil
	}
	async, err := persistence.NewAsyncSink(sink, cfg.Persistence.QueueSize, cfg.Persistence.Overflow, logger)
	if err != nil {
		sink.Close()
		return nil, err
	}
	return async, nil
}

// invocationOptions builds the per-call option map for the scheduler.
func invocationOptions(cfg *application.Config) map[string]any {
	opts := map[string]any{}
	if cfg.Invocation.MaxTokens > 0 {
		opts["max_tokens"] = cfg.Invocation.MaxTokens
	}
	return opts
}

// writeReport marshals the report to disk.
func writeReport(report *domain.CompetitionReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// printStandings writes the leaderboard to stdout.
func printStandings(report *domain.CompetitionReport) {
	fmt.Printf("\nCompetition %s (%s)\n", report.ID, report.Status)
	fmt.Printf("Rounds: %d scored of %d questions\n\n", report.ScoredRounds, report.TotalQuestions)
	for i, s := range report.Standings {
		fmt.Printf("%2d. %-30s %4d points (%d ranked, %d unavailable)\n",
			i+1, s.Model, s.Score, s.RoundsRanked, s.RoundsUnavailable)
	}
}

// newLogger builds the process logger.
func newLogger(level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if verbose {
		lvl = slog.LevelDebug
	} else {
		switch level {
		case "debug":
			lvl = slog.LevelDebug
		case "warn":
			lvl = slog.LevelWarn
		case "error":
			lvl = slog.LevelError
		default:
			lvl = slog.LevelInfo
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
