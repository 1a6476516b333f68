package llm

import (
	"context"
	"errors"
	"time"

	"github.com/zhmzlzn/modelarena/internal/ports"
)

// metricsLLM records request counts and latency per model and status.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that reports request metrics to
// the given collector.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

// DoRequest times the request and records its outcome.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	start := time.Now()
	response, err := m.next.DoRequest(ctx, prompt, opts)

	labels := map[string]string{
		"model":  m.next.GetModel(),
		"status": statusLabel(ctx, err),
	}

	if m.collector != nil {
		m.collector.RecordHistogram("llm_request_seconds", time.Since(start).Seconds(), labels)
		m.collector.RecordCounter("llm_requests_total", 1, labels)
	}

	return response, err
}

func statusLabel(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }
