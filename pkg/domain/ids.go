// Package domain holds the typed identifiers shared across layers.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects
// cross-assignment (an AccountID is never an EventID). Parse helpers enforce
// the invariant that IDs are valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "trustgate/pkg/domain-errors"
)

// AccountID identifies the canonical account a user is recognized by.
type AccountID uuid.UUID

// EventID identifies an externally-owned domain event record.
type EventID uuid.UUID

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id AccountID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }

func (id EventID) String() string { return uuid.UUID(id).String() }

// NewAccountID returns a fresh random account ID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// ParseAccountID parses and validates an account ID from its string form.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid id format")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be nil")
	}
	return u, nil
}

// ProviderKind enumerates the identity proof families an account can link.
type ProviderKind string

const (
	ProviderMessaging ProviderKind = "messaging"
	ProviderWallet    ProviderKind = "wallet"
	ProviderSocial    ProviderKind = "social"
)

// Valid reports whether k is one of the known provider kinds.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderMessaging, ProviderWallet, ProviderSocial:
		return true
	}
	return false
}
