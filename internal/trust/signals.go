// Package trust holds the trust signal record and the scoring engine that
// folds raw signals into the 0-100 composite score.
package trust

import (
	"time"

	id "trustgate/pkg/domain"
)

// Signals is the one-row-per-account record of raw trust facts plus the last
// computed score. It moves with its account: merges fold two rows into one
// with MergeSignals, never delete it independently.
type Signals struct {
	AccountID id.AccountID

	WalletAddress   string
	WalletConnected bool
	WalletVerified  bool
	WalletFirstSeen *time.Time

	SocialProviderID string
	SocialHandle     string
	SocialVerified   bool
	SocialPremium    bool
	SocialFirstSeen  *time.Time

	HandshakeCount   int
	EventCount       int
	CommunityCount   int
	FirstHandshakeAt *time.Time

	Composite  int
	Categories Categories
	UpdatedAt  time.Time
}

// MergeSignals folds src into dst field by field: booleans OR, first-observed
// timestamps prefer the already-set value, counters take the maximum, string
// identifiers prefer the value already set on dst.
func MergeSignals(dst, src Signals) Signals {
	out := dst

	out.WalletConnected = dst.WalletConnected || src.WalletConnected
	out.WalletVerified = dst.WalletVerified || src.WalletVerified
	out.SocialVerified = dst.SocialVerified || src.SocialVerified
	out.SocialPremium = dst.SocialPremium || src.SocialPremium

	out.WalletAddress = preferSet(dst.WalletAddress, src.WalletAddress)
	out.SocialProviderID = preferSet(dst.SocialProviderID, src.SocialProviderID)
	out.SocialHandle = preferSet(dst.SocialHandle, src.SocialHandle)

	out.WalletFirstSeen = preferSetTime(dst.WalletFirstSeen, src.WalletFirstSeen)
	out.SocialFirstSeen = preferSetTime(dst.SocialFirstSeen, src.SocialFirstSeen)
	out.FirstHandshakeAt = preferSetTime(dst.FirstHandshakeAt, src.FirstHandshakeAt)

	out.HandshakeCount = max(dst.HandshakeCount, src.HandshakeCount)
	out.EventCount = max(dst.EventCount, src.EventCount)
	out.CommunityCount = max(dst.CommunityCount, src.CommunityCount)

	return out
}

func preferSet(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func preferSetTime(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}
