package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizarena/go/internal/events"
)

// Sink receives lifecycle events from the outbox worker
type Sink interface {
	Name() string
	Handle(ctx context.Context, e events.Lifecycle) error
}

type Config struct {
	BufferSize     int
	MaxRetries     int
	RetryDelay     time.Duration
	PublishTimeout time.Duration
	DrainTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize:     1024,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		PublishTimeout: 5 * time.Second,
		DrainTimeout:   10 * time.Second,
	}
}

// Outbox decouples room lanes from slow publishers: Enqueue never blocks,
// and a single worker fans events out to every sink in order.
type Outbox struct {
	ch     chan events.Lifecycle
	sinks  []Sink
	config Config
	logger zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func New(cfg Config, sinks ...Sink) *Outbox {
	return &Outbox{
		ch:       make(chan events.Lifecycle, cfg.BufferSize),
		sinks:    sinks,
		config:   cfg,
		logger:   log.With().Str("component", "outbox").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Enqueue buffers e for delivery. It reports false when the buffer is full
// and the event was dropped.
func (o *Outbox) Enqueue(e events.Lifecycle) bool {
	select {
	case o.ch <- e:
		return true
	default:
		o.dropped.Add(1)
		return false
	}
}

func (o *Outbox) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	o.running = true
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(ctx)

	names := make([]string, len(o.sinks))
	for i, s := range o.sinks {
		names[i] = s.Name()
	}
	o.logger.Info().Strs("sinks", names).Int("buffer", o.config.BufferSize).Msg("outbox worker started")
	return nil
}

// Stop waits for the worker to deliver what is still buffered and exit.
func (o *Outbox) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	o.running = false
	o.mu.Unlock()

	close(o.stopChan)
	o.wg.Wait()

	o.logger.Info().
		Int64("delivered", o.delivered.Load()).
		Int64("failed", o.failed.Load()).
		Int64("dropped", o.dropped.Load()).
		Msg("outbox worker stopped")
	return nil
}

func (o *Outbox) run(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			o.drain()
			return
		case <-o.stopChan:
			o.drain()
			return
		case e := <-o.ch:
			o.deliver(ctx, e)
		}
	}
}

func (o *Outbox) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), o.config.DrainTimeout)
	defer cancel()

	for {
		select {
		case e := <-o.ch:
			o.deliver(ctx, e)
		default:
			return
		}
	}
}

func (o *Outbox) deliver(ctx context.Context, e events.Lifecycle) {
	for _, sink := range o.sinks {
		if err := o.publishWithRetry(ctx, sink, e); err != nil {
			o.failed.Add(1)
			o.logger.Error().
				Err(err).
				Str("sink", sink.Name()).
				Str("event_id", e.ID.String()).
				Str("event_type", string(e.Type)).
				Msg("failed to deliver event")
			continue
		}
		o.delivered.Add(1)
	}
}

func (o *Outbox) publishWithRetry(ctx context.Context, sink Sink, e events.Lifecycle) error {
	var lastErr error

	for attempt := 0; attempt <= o.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.config.RetryDelay * time.Duration(attempt)):
			}
		}

		pctx, cancel := context.WithTimeout(ctx, o.config.PublishTimeout)
		err := sink.Handle(pctx, e)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		o.logger.Warn().
			Err(err).
			Str("sink", sink.Name()).
			Str("event_id", e.ID.String()).
			Int("attempt", attempt+1).
			Msg("failed to deliver event, retrying")
	}

	return fmt.Errorf("failed after %d attempts: %w", o.config.MaxRetries+1, lastErr)
}

func (o *Outbox) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

type Stats struct {
	Pending   int   `json:"pending"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

func (o *Outbox) Stats() Stats {
	return Stats{
		Pending:   len(o.ch),
		Delivered: o.delivered.Load(),
		Failed:    o.failed.Load(),
		Dropped:   o.dropped.Load(),
	}
}
