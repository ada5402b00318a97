// Package batch collects records submitted from many goroutines and hands them to a
// Sink in batches, from a fixed pool of workers.
package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/git-hulk/pathtemplate/pkg/logger"
)

var (
	ErrProcessorClosed = errors.New("batch processor is closed")
	ErrBufferFull      = errors.New("record buffer is full")
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
)

// Sink receives batches of records.
type Sink[T any] interface {
	Send(ctx context.Context, records []T) error
}

// Config holds the configuration for the batch processor.
type Config struct {
	// Name identifies the processor in logs.
	Name string
	// MaxBatchSize defines the maximum number of records to send in a single batch.
	// Default is 100.
	MaxBatchSize int
	// FlushInterval defines the interval at which buffered records are sent even if
	// the batch size is not reached.
	// Default is 3 seconds.
	FlushInterval time.Duration
	// BufferSize defines the size of the internal buffer for incoming records.
	// If the buffer is full, Submit will return ErrBufferFull.
	// Default is MaxBatchSize * 10.
	BufferSize int
	// NumWorkers defines the number of goroutines sending batches.
	// Default is 1.
	NumWorkers int
	// ShutdownTimeout defines the maximum time Close waits for pending batches.
	// Default is 30 seconds.
	ShutdownTimeout time.Duration
}

func (c *Config) normalize() {
	if c.Name == "" {
		c.Name = "batch"
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 3 * time.Second
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 100
	}
	if c.BufferSize <= 0 {
		c.BufferSize = c.MaxBatchSize * 10
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 1
	}
}

// Stats counts records by outcome.
type Stats struct {
	Submitted int64
	Sent      int64
	Failed    int64
}

// Processor batches records for a Sink. Submit never blocks; batches are cut when
// MaxBatchSize is reached, on every FlushInterval tick, on Flush and on Close.
type Processor[T any] struct {
	config  Config
	sink    Sink[T]
	buffer  chan T
	pending chan []T
	flushCh chan struct{}
	quitCh  chan struct{}
	cancel  context.CancelFunc

	wg     sync.WaitGroup
	closed atomic.Bool

	submitted atomic.Int64
	sent      atomic.Int64
	failed    atomic.Int64
}

type Option func(*Config)

// NewProcessor starts a processor delivering to sink.
func NewProcessor[T any](sink Sink[T], options ...Option) *Processor[T] {
	config := Config{}
	for _, opt := range options {
		opt(&config)
	}
	config.normalize()

	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor[T]{
		config:  config,
		sink:    sink,
		buffer:  make(chan T, config.BufferSize),
		pending: make(chan []T, config.NumWorkers*2),
		flushCh: make(chan struct{}, 1),
		quitCh:  make(chan struct{}),
		cancel:  cancel,
	}

	p.wg.Add(1 + config.NumWorkers)
	go p.collect()
	for i := 0; i < config.NumWorkers; i++ {
		go p.sendLoop(ctx)
	}
	return p
}

func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

func WithMaxBatchSize(maxBatchSize int) Option {
	return func(c *Config) {
		c.MaxBatchSize = maxBatchSize
	}
}

func WithFlushInterval(flushInterval time.Duration) Option {
	return func(c *Config) {
		c.FlushInterval = flushInterval
	}
}

func WithBufferSize(bufferSize int) Option {
	return func(c *Config) {
		c.BufferSize = bufferSize
	}
}

func WithNumWorkers(numWorkers int) Option {
	return func(c *Config) {
		c.NumWorkers = numWorkers
	}
}

func WithShutdownTimeout(shutdownTimeout time.Duration) Option {
	return func(c *Config) {
		c.ShutdownTimeout = shutdownTimeout
	}
}

// Submit queues a record without blocking.
func (p *Processor[T]) Submit(record T) error {
	if p.closed.Load() {
		return ErrProcessorClosed
	}

	select {
	case p.buffer <- record:
		p.submitted.Add(1)
		return nil
	default:
		return ErrBufferFull
	}
}

// Flush asks the processor to send buffered records without waiting for the batch
// size or the next tick. It does not wait for delivery.
func (p *Processor[T]) Flush() {
	if p.closed.Load() {
		return
	}
	select {
	case p.flushCh <- struct{}{}:
	default:
	}
}

// Stats returns the record counters.
func (p *Processor[T]) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Sent:      p.sent.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close stops accepting records and waits, up to ShutdownTimeout, for every buffered
// record to be handed to the sink. On timeout in-flight sends are cancelled.
func (p *Processor[T]) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(p.quitCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-time.After(p.config.ShutdownTimeout):
		p.cancel()
		return ErrShutdownTimeout
	}
}

func (p *Processor[T]) collect() {
	defer p.wg.Done()
	defer close(p.pending)

	tick := time.NewTicker(p.config.FlushInterval)
	defer tick.Stop()

	records := make([]T, 0, p.config.MaxBatchSize)
	dispatch := func() {
		if len(records) == 0 {
			return
		}
		p.pending <- append([]T(nil), records...)
		records = records[:0]
	}

	for {
		select {
		case record := <-p.buffer:
			records = append(records, record)
			if len(records) >= p.config.MaxBatchSize {
				dispatch()
			}
		case <-tick.C:
			dispatch()
		case <-p.flushCh:
			for len(p.buffer) > 0 && len(records) < p.config.MaxBatchSize {
				records = append(records, <-p.buffer)
			}
			dispatch()
		case <-p.quitCh:
			for len(p.buffer) > 0 {
				records = append(records, <-p.buffer)
				if len(records) >= p.config.MaxBatchSize {
					dispatch()
				}
			}
			dispatch()
			return
		}
	}
}

func (p *Processor[T]) sendLoop(ctx context.Context) {
	defer p.wg.Done()
	for records := range p.pending {
		p.send(ctx, records)
	}
}

func (p *Processor[T]) send(ctx context.Context, records []T) {
	if err := p.sink.Send(ctx, records); err != nil {
		p.failed.Add(int64(len(records)))
		logger.Get().Error("Failed to send batch",
			zap.String("processor", p.config.Name),
			zap.Int("records", len(records)),
			zap.Error(err))
		return
	}
	p.sent.Add(int64(len(records)))
}
