package merge

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trustgate/internal/identity/store/account"
	"trustgate/internal/identity/store/artifact"
	"trustgate/internal/identity/store/link"
	"trustgate/internal/identity/store/profile"
	"trustgate/internal/platform/metrics"
	"trustgate/internal/trust"
	dErrors "trustgate/pkg/domain-errors"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/audit"
	"trustgate/pkg/platform/audit/publisher"
	"trustgate/pkg/platform/sentinel"
	"trustgate/pkg/requestcontext"
)

// Engine migrates every record a source account owns into a target account,
// then deletes the source. Every step is idempotent and keyed by natural
// identity, so a failed merge is resumed by calling Merge again with the
// same pair; already-applied steps are no-ops. No lock serializes merges:
// two merges into the same target interleave safely, though the final trust
// recompute is last-writer-wins.
type Engine struct {
	accounts  account.Store
	links     link.Store
	profiles  profile.Store
	artifacts artifact.Store
	records   RecordStore
	trust     *trust.Engine
	entities  []EntitySpec

	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor *publisher.Publisher
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithAuditor(p *publisher.Publisher) Option {
	return func(e *Engine) { e.auditor = p }
}

// WithEntities overrides the default entity declarations.
func WithEntities(entities []EntitySpec) Option {
	return func(e *Engine) { e.entities = entities }
}

func NewEngine(
	accounts account.Store,
	links link.Store,
	profiles profile.Store,
	artifacts artifact.Store,
	records RecordStore,
	trustEngine *trust.Engine,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		accounts:  accounts,
		links:     links,
		profiles:  profiles,
		artifacts: artifacts,
		records:   records,
		trust:     trustEngine,
		entities:  DefaultEntities(),
		logger:    logger,
		tracer:    otel.Tracer("trustgate/merge"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Merge runs the saga. Precondition: the caller has established that source
// is the disposable placeholder and target the durable destination.
func (e *Engine) Merge(ctx context.Context, source, target id.AccountID) error {
	if source == target {
		return dErrors.New(dErrors.CodeValidation, "cannot merge an account into itself")
	}
	if _, err := e.accounts.FindByID(ctx, target); err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "merge target account does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load merge target")
	}

	ctx, span := e.tracer.Start(ctx, "merge",
		trace.WithAttributes(
			attribute.String("merge.source", source.String()),
			attribute.String("merge.target", target.String()),
		))
	defer span.End()

	e.emit(ctx, target, audit.EventMergeStarted, map[string]string{"source": source.String()})

	for _, spec := range e.entities {
		if err := e.runStep(ctx, spec.Name, source, target, func(ctx context.Context) error {
			return e.applyPolicy(ctx, spec, source, target)
		}); err != nil {
			return err
		}
	}

	if err := e.runStep(ctx, "identity_links", source, target, func(ctx context.Context) error {
		return e.links.ReassignAccount(ctx, source, target)
	}); err != nil {
		return err
	}
	if err := e.runStep(ctx, "placeholder_artifacts", source, target, func(ctx context.Context) error {
		return e.artifacts.PurgeAccount(ctx, source)
	}); err != nil {
		return err
	}
	if err := e.runStep(ctx, "source_account", source, target, func(ctx context.Context) error {
		return e.accounts.Delete(ctx, source)
	}); err != nil {
		return err
	}

	if _, err := e.trust.Recompute(ctx, target); err != nil {
		return dErrors.Wrap(err, dErrors.CodePartialMerge, "merge applied but trust recompute failed")
	}

	if e.metrics != nil {
		e.metrics.MergesCompleted.Inc()
	}
	e.emit(ctx, target, audit.EventMergeCompleted, map[string]string{"source": source.String()})
	return nil
}

// runStep executes one idempotent saga step, recording failures with enough
// context to resume.
func (e *Engine) runStep(ctx context.Context, name string, source, target id.AccountID, fn func(context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "merge.step", trace.WithAttributes(attribute.String("merge.step", name)))
	defer span.End()

	if err := fn(ctx); err != nil {
		e.logger.Error("merge step failed",
			"step", name,
			"source", source.String(),
			"target", target.String(),
			"error", err,
		)
		if e.metrics != nil {
			e.metrics.MergeStepFailures.WithLabelValues(name).Inc()
		}
		e.emit(ctx, target, audit.EventMergeStepFailed, map[string]string{
			"source": source.String(),
			"step":   name,
		})
		return dErrors.Wrap(err, dErrors.CodePartialMerge, "merge step "+name+" failed; re-invoke merge to resume")
	}
	return nil
}

func (e *Engine) applyPolicy(ctx context.Context, spec EntitySpec, source, target id.AccountID) error {
	switch spec.Policy {
	case BulkReassign:
		return e.records.ReassignOwner(ctx, spec.Name, source, target)
	case ReassignOrDrop, ReassignOrDeleteDuplicate:
		return e.reassignKeyed(ctx, spec.Name, source, target)
	case MergeTakeBest:
		return e.mergeSignals(ctx, source, target)
	case FillBlank:
		return e.fillProfile(ctx, source, target)
	case PreferTargetElseMove:
		return e.moveSingleton(ctx, spec.Name, source, target)
	}
	return dErrors.Newf(dErrors.CodeInternal, "entity %s declares an unknown merge policy", spec.Name)
}

func (e *Engine) reassignKeyed(ctx context.Context, entity string, source, target id.AccountID) error {
	keys, err := e.records.ListKeys(ctx, entity, source)
	if err != nil {
		return err
	}
	for _, key := range keys {
		taken, err := e.records.HasKey(ctx, entity, target, key)
		if err != nil {
			return err
		}
		if taken {
			if err := e.records.DeleteKey(ctx, entity, source, key); err != nil {
				return err
			}
			continue
		}
		if err := e.records.ReassignKey(ctx, entity, source, key, target); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) mergeSignals(ctx context.Context, source, target id.AccountID) error {
	store := e.trust.SignalStore()
	src, err := store.Get(ctx, source)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}

	dst, err := store.Get(ctx, target)
	switch {
	case dErrors.Is(err, sentinel.ErrNotFound):
		// Target has no row: the source row moves over verbatim.
		src.AccountID = target
		if err := store.Save(ctx, src); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		merged := trust.MergeSignals(dst, src)
		merged.AccountID = target
		if err := store.Save(ctx, merged); err != nil {
			return err
		}
	}
	return store.Delete(ctx, source)
}

func (e *Engine) fillProfile(ctx context.Context, source, target id.AccountID) error {
	src, err := e.profiles.Get(ctx, source)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}

	dst, err := e.profiles.Get(ctx, target)
	switch {
	case dErrors.Is(err, sentinel.ErrNotFound):
		src.AccountID = target
		src.UpdatedAt = requestcontext.Now(ctx)
		if err := e.profiles.Save(ctx, src); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if dst.FillBlanksFrom(src) {
			dst.UpdatedAt = requestcontext.Now(ctx)
			if err := e.profiles.Save(ctx, dst); err != nil {
				return err
			}
		}
	}
	return e.profiles.Delete(ctx, source)
}

func (e *Engine) moveSingleton(ctx context.Context, entity string, source, target id.AccountID) error {
	keys, err := e.records.ListKeys(ctx, entity, source)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	targetKeys, err := e.records.ListKeys(ctx, entity, target)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if len(targetKeys) > 0 {
			if err := e.records.DeleteKey(ctx, entity, source, key); err != nil {
				return err
			}
			continue
		}
		if err := e.records.ReassignKey(ctx, entity, source, key, target); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, accountID id.AccountID, action audit.Action, metadata map[string]string) {
	if e.auditor == nil {
		return
	}
	_ = e.auditor.Emit(ctx, audit.Event{AccountID: accountID, Action: action, Metadata: metadata})
}
