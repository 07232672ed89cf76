// Package models holds the identity core's entities: accounts, identity
// links, verified identities, and profiles.
package models

import (
	"time"

	id "trustgate/pkg/domain"
)

// Account is the canonical identity a user is recognized by. The durable row
// lives in an auth table owned by the external identity provider; the core
// treats it as a map from ID to a login handle.
type Account struct {
	ID        id.AccountID
	Handle    string
	CreatedAt time.Time
}

// IdentityLink maps one external proof to exactly one account. Unique on
// (ProviderKind, ProviderID). Re-verification refreshes the claim metadata
// but never changes the owning account except through a merge.
type IdentityLink struct {
	ProviderKind id.ProviderKind
	ProviderID   string
	AccountID    id.AccountID
	DisplayName  string
	Handle       string
	Premium      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Claims are the normalized profile facts a provider attests to.
type Claims struct {
	DisplayName string
	Handle      string
	Premium     bool
}

// VerifiedIdentity is the normalized output of a successful provider
// verification.
type VerifiedIdentity struct {
	ProviderKind id.ProviderKind
	ProviderID   string
	Claims       Claims
}

// Profile is the optional free-text row per account. Merges fill blank
// target fields from the source and never overwrite non-blank ones.
type Profile struct {
	AccountID id.AccountID
	FirstName string
	LastName  string
	Company   string
	Bio       string
	Website   string
	UpdatedAt time.Time
}

// IsBlank reports whether the profile carries no free-text content.
func (p Profile) IsBlank() bool {
	return p.FirstName == "" && p.LastName == "" && p.Company == "" && p.Bio == "" && p.Website == ""
}

// FillBlanksFrom copies every field that is blank on p and non-blank on src.
// Returns true if anything changed.
func (p *Profile) FillBlanksFrom(src Profile) bool {
	changed := false
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&p.FirstName, src.FirstName},
		{&p.LastName, src.LastName},
		{&p.Company, src.Company},
		{&p.Bio, src.Bio},
		{&p.Website, src.Website},
	} {
		if *f.dst == "" && f.src != "" {
			*f.dst = f.src
			changed = true
		}
	}
	return changed
}
