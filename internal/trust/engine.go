package trust

import (
	"context"

	"trustgate/internal/platform/metrics"
	dErrors "trustgate/pkg/domain-errors"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
	"trustgate/pkg/requestcontext"
)

// Store is the signals persistence seam. Get returns sentinel.ErrNotFound
// for accounts with no row yet; the verified-wallet and verified-social
// lookups back the uniqueness guard.
type Store interface {
	Get(ctx context.Context, accountID id.AccountID) (Signals, error)
	Save(ctx context.Context, signals Signals) error
	Delete(ctx context.Context, accountID id.AccountID) error
	FindVerifiedWallet(ctx context.Context, address string) (Signals, error)
	FindVerifiedSocial(ctx context.Context, providerID, handle string) (Signals, error)
}

// Engine recomputes composite scores and persists them alongside the raw
// signals in the same write, so a read that follows an awaited signal write
// always sees a score that reflects it.
type Engine struct {
	store   Store
	caps    Caps
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(store Store, caps Caps, opts ...Option) *Engine {
	e := &Engine{store: store, caps: caps}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying signals store for collaborators that need
// raw reads (uniqueness guard, merge engine).
func (e *Engine) SignalStore() Store { return e.store }

// Recompute folds the account's current signals into fresh sub-scores and
// persists them. Missing rows recompute to an all-zero score without
// creating a row.
func (e *Engine) Recompute(ctx context.Context, accountID id.AccountID) (Result, error) {
	signals, err := e.store.Get(ctx, accountID)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return Compute(Signals{}, e.caps), nil
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trust signals")
	}
	return e.save(ctx, signals)
}

// Apply mutates the account's signals and recomputes in the same write.
// The row is created on first use. Callers report success only after Apply
// returns, which keeps the composite no more than one recompute behind the
// last awaited signal write.
func (e *Engine) Apply(ctx context.Context, accountID id.AccountID, mutate func(*Signals)) (Result, error) {
	signals, err := e.store.Get(ctx, accountID)
	if err != nil {
		if !dErrors.Is(err, sentinel.ErrNotFound) {
			return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trust signals")
		}
		signals = Signals{AccountID: accountID}
	}
	mutate(&signals)
	signals.AccountID = accountID
	return e.save(ctx, signals)
}

// Score returns the stored read model without recomputing.
func (e *Engine) Score(ctx context.Context, accountID id.AccountID) (Result, error) {
	signals, err := e.store.Get(ctx, accountID)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return Compute(Signals{}, e.caps), nil
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trust signals")
	}
	return Result{Composite: signals.Composite, Categories: signals.Categories}, nil
}

func (e *Engine) save(ctx context.Context, signals Signals) (Result, error) {
	result := Compute(signals, e.caps)
	signals.Composite = result.Composite
	signals.Categories = result.Categories
	signals.UpdatedAt = requestcontext.Now(ctx)
	if err := e.store.Save(ctx, signals); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist trust signals")
	}
	if e.metrics != nil {
		e.metrics.TrustRecomputes.Inc()
		e.metrics.CompositeScore.Observe(float64(result.Composite))
	}
	return result, nil
}
