package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func maximalSignals() Signals {
	now := time.Now()
	return Signals{
		WalletAddress:    "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		WalletConnected:  true,
		WalletVerified:   true,
		WalletFirstSeen:  &now,
		SocialProviderID: "99887766",
		SocialHandle:     "adal",
		SocialVerified:   true,
		SocialPremium:    true,
		SocialFirstSeen:  &now,
		HandshakeCount:   1_000_000,
		EventCount:       1_000_000,
		CommunityCount:   1_000_000,
		FirstHandshakeAt: &now,
	}
}

func TestCompute_Bounds(t *testing.T) {
	caps := DefaultCaps()

	t.Run("all-zero signals score zero", func(t *testing.T) {
		result := Compute(Signals{}, caps)
		assert.Equal(t, 0, result.Composite)
		assert.Equal(t, Categories{}, result.Categories)
	})

	t.Run("maximal signals hit every cap and sum to 100", func(t *testing.T) {
		result := Compute(maximalSignals(), caps)
		assert.Equal(t, caps.Handshakes, result.Categories.Handshakes)
		assert.Equal(t, caps.Wallet, result.Categories.Wallet)
		assert.Equal(t, caps.Social, result.Categories.Social)
		assert.Equal(t, caps.Events, result.Categories.Events)
		assert.Equal(t, caps.Community, result.Categories.Community)
		assert.Equal(t, 100, result.Composite)
	})

	t.Run("composite always equals the category sum", func(t *testing.T) {
		for handshake := 0; handshake <= 50; handshake += 7 {
			for events := 0; events <= 20; events += 3 {
				signals := Signals{
					HandshakeCount:  handshake,
					EventCount:      events,
					CommunityCount:  events * 2,
					WalletConnected: handshake%2 == 0,
					WalletVerified:  handshake%3 == 0,
					SocialVerified:  events%2 == 1,
					SocialPremium:   events%4 == 1,
				}
				result := Compute(signals, caps)
				sum := result.Categories.Handshakes + result.Categories.Wallet +
					result.Categories.Social + result.Categories.Events + result.Categories.Community
				assert.Equal(t, sum, result.Composite)
				assert.GreaterOrEqual(t, result.Composite, 0)
				assert.LessOrEqual(t, result.Composite, 100)
			}
		}
	})

	t.Run("counters have diminishing returns", func(t *testing.T) {
		first := Compute(Signals{HandshakeCount: 5}, caps).Categories.Handshakes
		second := Compute(Signals{HandshakeCount: 10}, caps).Categories.Handshakes
		third := Compute(Signals{HandshakeCount: 15}, caps).Categories.Handshakes
		assert.Greater(t, second-first, third-second-1, "later handshakes must earn no more than earlier ones")
		assert.Less(t, third, caps.Handshakes)
	})

	t.Run("premium without verification scores nothing", func(t *testing.T) {
		result := Compute(Signals{SocialPremium: true}, caps)
		assert.Equal(t, 0, result.Categories.Social)
	})
}

func TestCompute_Deterministic(t *testing.T) {
	signals := maximalSignals()
	caps := DefaultCaps()
	a := Compute(signals, caps)
	b := Compute(signals, caps)
	assert.Equal(t, a, b)
}

func TestMergeSignals(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("booleans OR", func(t *testing.T) {
		out := MergeSignals(Signals{WalletConnected: true}, Signals{SocialVerified: true})
		assert.True(t, out.WalletConnected)
		assert.True(t, out.SocialVerified)
	})

	t.Run("counters take the maximum", func(t *testing.T) {
		out := MergeSignals(Signals{HandshakeCount: 3, EventCount: 1}, Signals{HandshakeCount: 1, EventCount: 5})
		assert.Equal(t, 3, out.HandshakeCount)
		assert.Equal(t, 5, out.EventCount)
	})

	t.Run("first-observed prefers the already-set value", func(t *testing.T) {
		out := MergeSignals(Signals{FirstHandshakeAt: &late}, Signals{FirstHandshakeAt: &early})
		assert.Equal(t, &late, out.FirstHandshakeAt)

		out = MergeSignals(Signals{}, Signals{FirstHandshakeAt: &early})
		assert.Equal(t, &early, out.FirstHandshakeAt)
	})

	t.Run("identifiers prefer the target's value", func(t *testing.T) {
		out := MergeSignals(Signals{WalletAddress: "target-wallet"}, Signals{WalletAddress: "source-wallet", SocialHandle: "src"})
		assert.Equal(t, "target-wallet", out.WalletAddress)
		assert.Equal(t, "src", out.SocialHandle)
	})
}
