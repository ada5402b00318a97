package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/git-hulk/pathtemplate/pkg/logger"
)

type mockSink struct {
	mu        sync.Mutex
	batches   [][]int
	sendCount int
	failAfter int
	sendDelay time.Duration
}

func (m *mockSink) Send(_ context.Context, records []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendDelay > 0 {
		time.Sleep(m.sendDelay)
	}

	m.sendCount++
	if m.failAfter > 0 && m.sendCount > m.failAfter {
		return errors.New("mock send failure")
	}

	m.batches = append(m.batches, append([]int(nil), records...))
	return nil
}

func (m *mockSink) getBatches() [][]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]int(nil), m.batches...)
}

func (m *mockSink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Send(ctx context.Context, _ []int) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type concurrencyTrackingSink struct {
	active        int64
	maxConcurrent int64
	delay         time.Duration
}

func (s *concurrencyTrackingSink) Send(_ context.Context, _ []int) error {
	cur := atomic.AddInt64(&s.active, 1)
	for {
		maxVal := atomic.LoadInt64(&s.maxConcurrent)
		if cur <= maxVal || atomic.CompareAndSwapInt64(&s.maxConcurrent, maxVal, cur) {
			break
		}
	}
	time.Sleep(s.delay)
	atomic.AddInt64(&s.active, -1)
	return nil
}

func TestProcessor_Submit(t *testing.T) {
	sink := &mockSink{}
	processor := NewProcessor[int](sink,
		WithMaxBatchSize(3),
		WithBufferSize(10),
		WithFlushInterval(time.Millisecond),
	)
	defer processor.Close()

	for i := 0; i < 6; i++ {
		require.NoError(t, processor.Submit(i))
	}

	require.Eventually(t, func() bool {
		return sink.total() == 6
	}, time.Second, time.Millisecond)
}

func TestProcessor_MaxBatchSize(t *testing.T) {
	sink := &mockSink{}
	processor := NewProcessor[int](sink, WithMaxBatchSize(2), WithFlushInterval(time.Hour))

	for i := 0; i < 5; i++ {
		require.NoError(t, processor.Submit(i))
	}
	require.NoError(t, processor.Close())

	batches := sink.getBatches()
	require.Len(t, batches, 3)
	for _, batch := range batches {
		require.LessOrEqual(t, len(batch), 2)
	}
	require.Equal(t, 5, sink.total())
}

func TestProcessor_BatchesAreIndependentCopies(t *testing.T) {
	sink := &mockSink{}
	processor := NewProcessor[int](sink, WithMaxBatchSize(2), WithFlushInterval(time.Hour), WithNumWorkers(2))

	for i := 0; i < 6; i++ {
		require.NoError(t, processor.Submit(i))
	}
	require.NoError(t, processor.Close())

	seen := make(map[int]bool)
	for _, batch := range sink.getBatches() {
		for _, record := range batch {
			require.False(t, seen[record], "record %d delivered twice", record)
			seen[record] = true
		}
	}
	require.Len(t, seen, 6)
}

func TestProcessor_MultipleWorkers(t *testing.T) {
	sink := &concurrencyTrackingSink{delay: 20 * time.Millisecond}
	processor := NewProcessor[int](sink,
		WithMaxBatchSize(1),
		WithNumWorkers(3),
		WithFlushInterval(time.Hour),
	)

	for i := 0; i < 12; i++ {
		require.NoError(t, processor.Submit(i))
	}
	require.NoError(t, processor.Close())

	maxConcurrent := atomic.LoadInt64(&sink.maxConcurrent)
	require.Greater(t, maxConcurrent, int64(1))
	require.LessOrEqual(t, maxConcurrent, int64(3))
	require.Equal(t, int64(12), processor.Stats().Sent)
}

func TestProcessor_Flush(t *testing.T) {
	sink := &mockSink{}
	processor := NewProcessor[int](sink, WithMaxBatchSize(100), WithFlushInterval(time.Hour))
	defer processor.Close()

	require.NoError(t, processor.Submit(1))
	require.NoError(t, processor.Submit(2))
	processor.Flush()

	require.Eventually(t, func() bool {
		return sink.total() == 2
	}, time.Second, time.Millisecond)
}

func TestProcessor_Close(t *testing.T) {
	sink := &mockSink{}
	processor := NewProcessor[int](sink, WithMaxBatchSize(10), WithFlushInterval(time.Hour))

	require.NoError(t, processor.Submit(1))
	require.NoError(t, processor.Submit(2))
	require.NoError(t, processor.Close())

	require.Equal(t, [][]int{{1, 2}}, sink.getBatches())
	require.ErrorIs(t, processor.Submit(3), ErrProcessorClosed)
	require.NoError(t, processor.Close())
}

func TestProcessor_ShutdownTimeout(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	processor := NewProcessor[int](sink,
		WithMaxBatchSize(1),
		WithShutdownTimeout(20*time.Millisecond),
	)

	require.NoError(t, processor.Submit(1))
	require.ErrorIs(t, processor.Close(), ErrShutdownTimeout)
}

func TestProcessor_BufferFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	processor := NewProcessor[int](sink,
		WithMaxBatchSize(1),
		WithBufferSize(2),
		WithFlushInterval(time.Hour),
	)
	defer processor.Close()
	defer close(sink.release)

	var err error
	for i := 0; i < 100 && err == nil; i++ {
		err = processor.Submit(i)
	}
	require.ErrorIs(t, err, ErrBufferFull)
}

func TestProcessor_SendFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	sink := &mockSink{failAfter: 1}
	processor := NewProcessor[int](sink, WithName("registrations"), WithMaxBatchSize(2), WithFlushInterval(time.Hour))
	for i := 0; i < 4; i++ {
		require.NoError(t, processor.Submit(i))
	}
	require.NoError(t, processor.Close())

	stats := processor.Stats()
	require.Equal(t, Stats{Submitted: 4, Sent: 2, Failed: 2}, stats)

	entries := logs.FilterMessage("Failed to send batch").All()
	require.Len(t, entries, 1)
	require.Equal(t, "registrations", entries[0].ContextMap()["processor"])
	require.Equal(t, int64(2), entries[0].ContextMap()["records"])
}

func TestProcessor_DefaultConfig(t *testing.T) {
	processor := NewProcessor[int](&mockSink{})
	defer processor.Close()

	require.Equal(t, "batch", processor.config.Name)
	require.Equal(t, 100, processor.config.MaxBatchSize)
	require.Equal(t, 1000, processor.config.BufferSize)
	require.Equal(t, 1, processor.config.NumWorkers)
	require.Equal(t, 3*time.Second, processor.config.FlushInterval)
}
