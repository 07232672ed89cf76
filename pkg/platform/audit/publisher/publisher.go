package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"trustgate/pkg/platform/audit"
	id "trustgate/pkg/domain"
)

// Publisher emits audit events to a Store, synchronously by default or
// through a buffered channel when WithAsyncBuffer is set. Emission failures
// are logged, never surfaced: audit must not fail the mutation it records.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	ch     chan audit.Event
	wg     sync.WaitGroup
	closed sync.Once
}

// Option configures a Publisher.
type Option func(*options)

type options struct {
	asyncBuffer int
	logger      *slog.Logger
}

// WithAsyncBuffer switches the publisher to async mode with the given
// channel capacity.
func WithAsyncBuffer(n int) Option {
	return func(o *options) { o.asyncBuffer = n }
}

// WithLogger sets the logger for emission failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	cfg := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	p := &Publisher{store: store, logger: cfg.logger}
	if cfg.asyncBuffer > 0 {
		p.ch = make(chan audit.Event, cfg.asyncBuffer)
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records one event. In async mode a full buffer drops the event with a
// warning rather than blocking the request path.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if p.ch != nil {
		select {
		case p.ch <- event:
		default:
			p.logger.Warn("audit buffer full, dropping event",
				"action", event.Action, "account_id", event.AccountID.String())
		}
		return nil
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.Error("audit append failed", "action", event.Action, "error", err)
	}
	return nil
}

// List returns the recorded events for an account.
func (p *Publisher) List(ctx context.Context, accountID id.AccountID) ([]audit.Event, error) {
	return p.store.ListByAccount(ctx, accountID)
}

// Close stops the async drain goroutine and flushes buffered events.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.ch != nil {
			close(p.ch)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.ch {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed", "action", event.Action, "error", err)
		}
	}
}
