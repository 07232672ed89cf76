// Package service orchestrates the identity flows: verification, account
// resolution, uniqueness enforcement, merging and trust updates.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"trustgate/internal/identity/models"
	"trustgate/internal/identity/store/account"
	"trustgate/internal/identity/store/link"
	"trustgate/internal/platform/metrics"
	dErrors "trustgate/pkg/domain-errors"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/audit"
	"trustgate/pkg/platform/audit/publisher"
	"trustgate/pkg/platform/sentinel"
	"trustgate/pkg/requestcontext"
)

// resolveScanPageSize bounds each page of the conflict-recovery scan.
const resolveScanPageSize = 200

// resolveScanMaxPages bounds the total scan; placeholder handles are
// deterministic, so a legitimate conflict is found within the first pages
// unless the store is inconsistent.
const resolveScanMaxPages = 50

// Resolver maps a verified identity onto an account, provisioning a
// placeholder account on first contact.
type Resolver struct {
	accounts account.Store
	links    link.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  *publisher.Publisher
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithResolverMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

func WithResolverAuditor(p *publisher.Publisher) ResolverOption {
	return func(r *Resolver) { r.auditor = p }
}

func NewResolver(accounts account.Store, links link.Store, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{accounts: accounts, links: links, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PlaceholderHandle derives the deterministic login handle a provisional
// account is keyed by. Re-running the same flow after a partial failure
// converges on the same handle instead of creating duplicates.
func PlaceholderHandle(kind id.ProviderKind, providerID string) string {
	return fmt.Sprintf("%s:%s@placeholder.local", kind, providerID)
}

// Resolve finds the account linked to the identity or provisions a new
// placeholder account. Calling it twice with the same (kind, providerID)
// never creates two accounts.
func (r *Resolver) Resolve(ctx context.Context, identity models.VerifiedIdentity) (id.AccountID, bool, error) {
	existing, err := r.links.Find(ctx, identity.ProviderKind, identity.ProviderID)
	switch {
	case err == nil:
		// Re-verification refreshes claim metadata, never ownership.
		if err := r.upsertLink(ctx, identity, existing.AccountID); err != nil {
			return id.AccountID{}, false, err
		}
		return existing.AccountID, false, nil
	case !dErrors.Is(err, sentinel.ErrNotFound):
		return id.AccountID{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity link")
	}

	accountID, err := r.provision(ctx, identity)
	if err != nil {
		return id.AccountID{}, false, err
	}
	if err := r.upsertLink(ctx, identity, accountID); err != nil {
		return id.AccountID{}, false, err
	}
	r.emit(ctx, accountID, audit.EventIdentityLinked, map[string]string{
		"provider_kind": string(identity.ProviderKind),
		"provider_id":   identity.ProviderID,
	})
	return accountID, true, nil
}

// Owner returns the account an identity currently resolves to, without
// provisioning or touching the link. Zero means the identity is unclaimed.
func (r *Resolver) Owner(ctx context.Context, identity models.VerifiedIdentity) (id.AccountID, error) {
	existing, err := r.links.Find(ctx, identity.ProviderKind, identity.ProviderID)
	switch {
	case err == nil:
		return existing.AccountID, nil
	case dErrors.Is(err, sentinel.ErrNotFound):
		return id.AccountID{}, nil
	}
	return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity link")
}

// ResolveFor links an unclaimed identity to the preferred account instead of
// provisioning a placeholder; an identity already linked elsewhere resolves
// to its existing owner.
func (r *Resolver) ResolveFor(ctx context.Context, identity models.VerifiedIdentity, preferred id.AccountID) (id.AccountID, error) {
	existing, err := r.links.Find(ctx, identity.ProviderKind, identity.ProviderID)
	switch {
	case err == nil:
		if err := r.upsertLink(ctx, identity, existing.AccountID); err != nil {
			return id.AccountID{}, err
		}
		return existing.AccountID, nil
	case !dErrors.Is(err, sentinel.ErrNotFound):
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity link")
	}

	if err := r.upsertLink(ctx, identity, preferred); err != nil {
		return id.AccountID{}, err
	}
	r.emit(ctx, preferred, audit.EventIdentityLinked, map[string]string{
		"provider_kind": string(identity.ProviderKind),
		"provider_id":   identity.ProviderID,
	})
	return preferred, nil
}

func (r *Resolver) provision(ctx context.Context, identity models.VerifiedIdentity) (id.AccountID, error) {
	handle := PlaceholderHandle(identity.ProviderKind, identity.ProviderID)
	accountID := id.NewAccountID()
	err := r.accounts.Create(ctx, models.Account{
		ID:        accountID,
		Handle:    handle,
		CreatedAt: requestcontext.Now(ctx),
	})
	switch {
	case err == nil:
		if r.metrics != nil {
			r.metrics.AccountsCreated.Inc()
		}
		r.emit(ctx, accountID, audit.EventAccountCreated, map[string]string{"handle": handle})
		return accountID, nil
	case dErrors.Is(err, sentinel.ErrConflict):
		// The account row exists from an earlier attempt whose link write
		// crashed. Find it by its deterministic handle.
		found, scanErr := r.findByHandle(ctx, handle)
		if scanErr != nil {
			return id.AccountID{}, scanErr
		}
		return found, nil
	default:
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
}

func (r *Resolver) findByHandle(ctx context.Context, handle string) (id.AccountID, error) {
	for page := 0; page < resolveScanMaxPages; page++ {
		accounts, err := r.accounts.List(ctx, page*resolveScanPageSize, resolveScanPageSize)
		if err != nil {
			return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan accounts")
		}
		for _, a := range accounts {
			if a.Handle == handle {
				return a.ID, nil
			}
		}
		if len(accounts) < resolveScanPageSize {
			break
		}
	}
	return id.AccountID{}, dErrors.Newf(dErrors.CodeConflict, "handle %s is taken but its account was not found", handle)
}

func (r *Resolver) upsertLink(ctx context.Context, identity models.VerifiedIdentity, accountID id.AccountID) error {
	now := requestcontext.Now(ctx)
	err := r.links.Upsert(ctx, models.IdentityLink{
		ProviderKind: identity.ProviderKind,
		ProviderID:   identity.ProviderID,
		AccountID:    accountID,
		DisplayName:  identity.Claims.DisplayName,
		Handle:       identity.Claims.Handle,
		Premium:      identity.Claims.Premium,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist identity link")
	}
	return nil
}

func (r *Resolver) emit(ctx context.Context, accountID id.AccountID, action audit.Action, metadata map[string]string) {
	if r.auditor == nil {
		return
	}
	_ = r.auditor.Emit(ctx, audit.Event{AccountID: accountID, Action: action, Metadata: metadata})
}
