// Package artifact stores the ephemeral placeholder artifacts a messaging
// account accumulates: single-use link codes and bot conversation state.
// MergeEngine purges them when the placeholder account is absorbed.
package artifact

import (
	"context"
	"time"

	id "trustgate/pkg/domain"
)

// Store is the ephemeral artifact seam.
//
// ConsumeLinkCode is single-use: the second consume of the same code returns
// sentinel.ErrAlreadyUsed, an unknown or expired code sentinel.ErrNotFound.
type Store interface {
	SaveLinkCode(ctx context.Context, code string, accountID id.AccountID, ttl time.Duration) error
	ConsumeLinkCode(ctx context.Context, code string) (id.AccountID, error)
	SaveBotState(ctx context.Context, accountID id.AccountID, state string) error
	BotState(ctx context.Context, accountID id.AccountID) (string, error)
	PurgeAccount(ctx context.Context, accountID id.AccountID) error
}
