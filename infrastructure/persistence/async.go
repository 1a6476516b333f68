package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zhmzlzn/modelarena/internal/domain"
	"github.com/zhmzlzn/modelarena/internal/ports"
)

var _ ports.RecordSink = (*AsyncSink)(nil)

// Overflow policies for a full async queue.
const (
	// OverflowBlock makes Append wait for queue space.
	OverflowBlock = "block"
	// OverflowDropOldest evicts the oldest queued record to make room,
	// trading history completeness for round throughput.
	OverflowDropOldest = "drop_oldest"
)

// appendJob is one queued write.
type appendJob struct {
	record domain.RoundRecord
	scores domain.ScoreTable
}

// AsyncSink decouples round execution from storage latency: Append
// enqueues onto a bounded queue and a single background worker drains
// it into the inner sink. Close flushes the queue before closing the
// inner sink.
type AsyncSink struct {
	inner    ports.RecordSink
	logger   *slog.Logger
	overflow string

	mu     sync.Mutex
	queue  chan appendJob
	closed bool
	done   chan struct{}
}

// NewAsyncSink wraps inner with a queue of the given size and overflow
// policy, and starts the writer goroutine.
func NewAsyncSink(inner ports.RecordSink, queueSize int, overflow string, logger *slog.Logger) (*AsyncSink, error) {
	if queueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", queueSize)
	}
	if overflow != OverflowBlock && overflow != OverflowDropOldest {
		return nil, fmt.Errorf("unknown overflow policy %q", overflow)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &AsyncSink{
		inner:    inner,
		logger:   logger,
		overflow: overflow,
		queue:    make(chan appendJob, queueSize),
		done:     make(chan struct{}),
	}
	go s.drain()
	return s, nil
}

// Append enqueues one record. Under the block policy it waits for queue
// space or context cancellation; under drop_oldest it always returns
// promptly.
func (s *AsyncSink) Append(ctx context.Context, record domain.RoundRecord, scores domain.ScoreTable) error {
	// The lock is held across the send so Close cannot close the queue
	// between the check and the enqueue.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("append after close")
	}

	job := appendJob{record: record, scores: scores.Clone()}

	if s.overflow == OverflowBlock {
		select {
		case s.queue <- job:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		select {
		case s.queue <- job:
			return nil
		default:
		}
		select {
		case dropped := <-s.queue:
			s.logger.Warn("write queue full, dropping oldest record",
				"dropped_round", dropped.record.RoundIndex)
		default:
		}
	}
}

// drain is the writer loop. Inner failures are logged and skipped so a
// bad write never wedges the queue.
func (s *AsyncSink) drain() {
	defer close(s.done)
	for job := range s.queue {
		if err := s.inner.Append(context.Background(), job.record, job.scores); err != nil {
			s.logger.Error("async write failed",
				"round", job.record.RoundIndex, "error", err)
		}
	}
}

// Close flushes queued writes, waits for the worker, and closes the
// inner sink.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return s.inner.Close()
}
