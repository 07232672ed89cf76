package service

import (
	"context"

	"trustgate/internal/trust"
	dErrors "trustgate/pkg/domain-errors"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

// Guard is the fast-fail pre-check against cross-account exclusivity: one
// verified wallet address and one verified social identity across all
// accounts. The storage layer's unique indexes remain the authoritative
// backstop; two racing verifications can both pass this check, and the
// second write then fails on the constraint.
type Guard struct {
	signals trust.Store
}

func NewGuard(signals trust.Store) *Guard {
	return &Guard{signals: signals}
}

// CheckWallet rejects verification of an address another account already
// holds verified. Re-verification by the same account passes.
func (g *Guard) CheckWallet(ctx context.Context, address string, exclude id.AccountID) error {
	row, err := g.signals.FindVerifiedWallet(ctx, address)
	switch {
	case dErrors.Is(err, sentinel.ErrNotFound):
		return nil
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check wallet uniqueness")
	case row.AccountID == exclude:
		return nil
	}
	return dErrors.New(dErrors.CodeAlreadyLinked, "wallet address is already verified by another account")
}

// CheckSocial rejects verification of a social identity another account
// already holds verified, matching by stable provider id or, for accounts
// verified before the provider id was captured, by human handle.
func (g *Guard) CheckSocial(ctx context.Context, providerID, handle string, exclude id.AccountID) error {
	row, err := g.signals.FindVerifiedSocial(ctx, providerID, handle)
	switch {
	case dErrors.Is(err, sentinel.ErrNotFound):
		return nil
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check social uniqueness")
	case row.AccountID == exclude:
		return nil
	}
	return dErrors.New(dErrors.CodeAlreadyLinked, "social identity is already verified by another account")
}
