// Package link stores IdentityLink rows: the durable mapping from one
// external proof to exactly one account, unique on (provider kind,
// provider id).
package link

import (
	"context"

	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
)

// Store is the identity link persistence seam.
//
// Upsert refreshes claim metadata for an existing (kind, providerID) pair but
// must not change the owning account; ownership moves only through
// ReassignAccount during a merge. FindSocialByHandle supports the uniqueness
// guard's legacy-handle check.
type Store interface {
	Find(ctx context.Context, kind id.ProviderKind, providerID string) (models.IdentityLink, error)
	Upsert(ctx context.Context, link models.IdentityLink) error
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.IdentityLink, error)
	FindSocialByHandle(ctx context.Context, handle string) (models.IdentityLink, error)
	ReassignAccount(ctx context.Context, from, to id.AccountID) error
}
