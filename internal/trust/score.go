package trust

import "math"

// Caps are the per-category hard caps. Product configuration, not core
// logic; defaults sum to exactly 100.
type Caps struct {
	Handshakes int
	Wallet     int
	Social     int
	Events     int
	Community  int
}

// DefaultCaps returns the standard weighting.
func DefaultCaps() Caps {
	return Caps{Handshakes: 30, Wallet: 25, Social: 20, Events: 15, Community: 10}
}

// Categories are the five capped sub-scores.
type Categories struct {
	Handshakes int `json:"handshakes"`
	Wallet     int `json:"wallet"`
	Social     int `json:"social"`
	Events     int `json:"events"`
	Community  int `json:"community"`
}

// Result is the trust score read model.
type Result struct {
	Composite  int        `json:"composite"`
	Categories Categories `json:"categories"`
}

// Compute derives the five category sub-scores and their composite from the
// raw signal fields. Pure and order-independent: the same signals always
// yield the same result. Counter categories use a saturating curve
// cap*n/(n+k) so early activity counts most; boolean categories split their
// cap across the facts. Each category is clamped to its cap, so the
// composite cannot exceed the sum of caps.
func Compute(signals Signals, caps Caps) Result {
	categories := Categories{
		Handshakes: saturate(signals.HandshakeCount, 10, caps.Handshakes),
		Wallet:     walletScore(signals, caps.Wallet),
		Social:     socialScore(signals, caps.Social),
		Events:     saturate(signals.EventCount, 3, caps.Events),
		Community:  saturate(signals.CommunityCount, 5, caps.Community),
	}
	composite := categories.Handshakes + categories.Wallet + categories.Social +
		categories.Events + categories.Community
	return Result{Composite: composite, Categories: categories}
}

// saturate maps a counter onto [0, limit] with diminishing returns; k is
// the count at which half the cap is earned.
func saturate(n, k, limit int) int {
	if n <= 0 {
		return 0
	}
	score := int(math.Round(float64(limit) * float64(n) / float64(n+k)))
	return clamp(score, limit)
}

func walletScore(signals Signals, limit int) int {
	score := 0
	if signals.WalletConnected {
		score += 2 * limit / 5
	}
	if signals.WalletVerified {
		score += limit - 2*limit/5
	}
	return clamp(score, limit)
}

func socialScore(signals Signals, limit int) int {
	if !signals.SocialVerified {
		return 0
	}
	score := 3 * limit / 4
	if signals.SocialPremium {
		score = limit
	}
	return clamp(score, limit)
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
