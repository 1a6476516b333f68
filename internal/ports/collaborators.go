package ports

import (
	"context"
	"time"

	"github.com/zhmzlzn/modelarena/internal/domain"
)

// QuestionSource produces the finite, ordered question sequence for a run.
// The core treats the sequence as fully materialized before the first
// round starts.
type QuestionSource interface {
	// Questions returns the question sequence. Implementations may draw
	// from a static bank or generate questions via a model; either way
	// the returned order is the round order.
	Questions(ctx context.Context) ([]domain.Question, error)
}

// RecordSink receives finished round records together with the post-round
// score table snapshot. Append must not block the next round indefinitely;
// asynchronous implementations apply a bounded-queue backpressure policy.
type RecordSink interface {
	// Append persists one round record and the scores after that round.
	Append(ctx context.Context, record domain.RoundRecord, scores domain.ScoreTable) error

	// Close flushes and releases the sink. No Append may follow Close.
	Close() error
}

// MetricsCollector receives operational metrics from the core and the
// invocation layer. Implementations integrate with monitoring backends
// such as Prometheus.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
