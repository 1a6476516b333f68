package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhmzlzn/modelarena/internal/domain"
)

// blockingSink is a RecordSink whose Append blocks until released.
type blockingSink struct {
	mu      sync.Mutex
	records []domain.RoundRecord
	gate    chan struct{}
	closed  bool
}

func newBlockingSink() *blockingSink {
	return &blockingSink{gate: make(chan struct{})}
}

func (b *blockingSink) release() { close(b.gate) }

func (b *blockingSink) Append(ctx context.Context, record domain.RoundRecord, scores domain.ScoreTable) error {
	<-b.gate
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, record)
	return nil
}

func (b *blockingSink) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *blockingSink) stored() []domain.RoundRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.RoundRecord, len(b.records))
	copy(out, b.records)
	return out
}

func TestAsyncSink_FlushesOnClose(t *testing.T) {
	inner := newBlockingSink()
	inner.release()
	sink, err := NewAsyncSink(inner, 8, OverflowBlock, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Append(ctx, domain.RoundRecord{RoundIndex: i}, nil))
	}
	require.NoError(t, sink.Close())

	assert.Len(t, inner.stored(), 5)
	assert.True(t, inner.closed)
}

func TestAsyncSink_PreservesOrder(t *testing.T) {
	inner := newBlockingSink()
	inner.release()
	sink, err := NewAsyncSink(inner, 16, OverflowBlock, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, sink.Append(ctx, domain.RoundRecord{RoundIndex: i}, nil))
	}
	require.NoError(t, sink.Close())

	stored := inner.stored()
	require.Len(t, stored, 10)
	for i, r := range stored {
		assert.Equal(t, i, r.RoundIndex)
	}
}

func TestAsyncSink_BlockPolicyHonorsContext(t *testing.T) {
	inner := newBlockingSink() // never released: the worker stays stuck
	sink, err := NewAsyncSink(inner, 1, OverflowBlock, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx := context.Background()
	// The worker takes the first record and blocks in the inner sink;
	// the second append then fills the queue.
	require.NoError(t, sink.Append(ctx, domain.RoundRecord{RoundIndex: 0}, nil))
	require.NoError(t, sink.Append(ctx, domain.RoundRecord{RoundIndex: 1}, nil))

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err = sink.Append(cancelled, domain.RoundRecord{RoundIndex: 2}, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	inner.release()
	require.NoError(t, sink.Close())
}

func TestAsyncSink_DropOldest(t *testing.T) {
	inner := newBlockingSink() // worker blocked so the queue backs up
	sink, err := NewAsyncSink(inner, 2, OverflowDropOldest, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.NoError(t, sink.Append(ctx, domain.RoundRecord{RoundIndex: i}, nil))
	}

	inner.release()
	require.NoError(t, sink.Close())

	stored := inner.stored()
	assert.NotEmpty(t, stored)
	assert.Less(t, len(stored), 6, "some records were dropped under pressure")
	// The most recent record always survives.
	assert.Equal(t, 5, stored[len(stored)-1].RoundIndex)
}

func TestAsyncSink_AppendAfterClose(t *testing.T) {
	inner := newBlockingSink()
	inner.release()
	sink, err := NewAsyncSink(inner, 4, OverflowBlock, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	err = sink.Append(context.Background(), domain.RoundRecord{}, nil)
	assert.Error(t, err)
}

func TestAsyncSink_InvalidConfig(t *testing.T) {
	inner := newBlockingSink()

	_, err := NewAsyncSink(inner, 0, OverflowBlock, nil)
	assert.Error(t, err)

	_, err = NewAsyncSink(inner, 4, "teleport", nil)
	assert.Error(t, err)
}

func TestAsyncSink_InnerFailureDoesNotWedge(t *testing.T) {
	failing := &failingSink{}
	sink, err := NewAsyncSink(failing, 4, OverflowBlock, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, domain.RoundRecord{RoundIndex: 0}, nil))
	require.NoError(t, sink.Append(ctx, domain.RoundRecord{RoundIndex: 1}, nil))
	require.NoError(t, sink.Close())

	assert.Equal(t, 2, failing.calls)
}

type failingSink struct{ calls int }

func (f *failingSink) Append(ctx context.Context, record domain.RoundRecord, scores domain.ScoreTable) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingSink) Close() error { return nil }
