// Package profile persists the optional free-text profile row per account.
package profile

import (
	"context"

	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
)

// Store is the profile persistence seam. Get returns sentinel.ErrNotFound
// when the account has no profile row.
type Store interface {
	Get(ctx context.Context, accountID id.AccountID) (models.Profile, error)
	Save(ctx context.Context, profile models.Profile) error
	Delete(ctx context.Context, accountID id.AccountID) error
}
