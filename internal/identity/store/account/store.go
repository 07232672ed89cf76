// Package account stores the durable account rows. The table is owned by
// the external identity provider; the core only creates, looks up, lists and
// deletes rows through this interface.
package account

import (
	"context"

	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
)

// Store is the account persistence seam.
//
// Create returns sentinel.ErrConflict when the login handle is already taken;
// List supports the resolver's bounded conflict-recovery scan.
type Store interface {
	Create(ctx context.Context, account models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (models.Account, error)
	List(ctx context.Context, offset, limit int) ([]models.Account, error)
	Delete(ctx context.Context, accountID id.AccountID) error
}
