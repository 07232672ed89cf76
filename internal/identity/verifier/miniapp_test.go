package verifier

import (
	"context"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustgate/internal/identity/crypto"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
	"trustgate/pkg/requestcontext"
)

const testBotSecret = "123456:bot-secret-for-tests"

// signedPayload builds a mini-app payload signed the way the platform does:
// sorted k=v lines hashed under the derived secret.
func signedPayload(t *testing.T, fields map[string]string) string {
	t.Helper()

	lines := make([]string, 0, len(fields))
	for k, v := range fields {
		lines = append(lines, k+"="+v)
	}
	sort.Strings(lines)

	secret := crypto.KeyedHash([]byte("WebAppData"), []byte(testBotSecret))
	mac := crypto.KeyedHash(secret, []byte(strings.Join(lines, "\n")))

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", hex.EncodeToString(mac))
	return values.Encode()
}

func miniAppFields(now time.Time) map[string]string {
	return map[string]string{
		"auth_date": strconv.FormatInt(now.Unix(), 10),
		"query_id":  "AAE5mZ8TAAAAADmZnxNZq7cX",
		"user":      `{"id":329123456,"first_name":"Ada","last_name":"Lovelace","username":"adal","is_premium":true}`,
	}
}

func TestMiniApp_Verify(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	v := NewMiniApp(testBotSecret)

	t.Run("valid payload verifies", func(t *testing.T) {
		identity, err := v.Verify(ctx, signedPayload(t, miniAppFields(now)))
		require.NoError(t, err)
		assert.Equal(t, id.ProviderMessaging, identity.ProviderKind)
		assert.Equal(t, "329123456", identity.ProviderID)
		assert.Equal(t, "Ada Lovelace", identity.Claims.DisplayName)
		assert.Equal(t, "adal", identity.Claims.Handle)
		assert.True(t, identity.Claims.Premium)
	})

	t.Run("tampered field flips result", func(t *testing.T) {
		fields := miniAppFields(now)
		payload := signedPayload(t, fields)
		tampered := strings.Replace(payload, "adal", "eve", 1)
		_, err := v.Verify(ctx, tampered)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidProof))
	})

	t.Run("tampered hash flips result", func(t *testing.T) {
		payload := signedPayload(t, miniAppFields(now))
		values, err := url.ParseQuery(payload)
		require.NoError(t, err)
		h := values.Get("hash")
		if h[0] == 'a' {
			h = "b" + h[1:]
		} else {
			h = "a" + h[1:]
		}
		values.Set("hash", h)
		_, verr := v.Verify(ctx, values.Encode())
		assert.True(t, dErrors.HasCode(verr, dErrors.CodeInvalidProof))
	})

	t.Run("stale auth_date is expired", func(t *testing.T) {
		fields := miniAppFields(now.Add(-61 * time.Minute))
		_, err := v.Verify(ctx, signedPayload(t, fields))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExpiredProof))
	})

	t.Run("auth_date just inside window verifies", func(t *testing.T) {
		fields := miniAppFields(now.Add(-59 * time.Minute))
		_, err := v.Verify(ctx, signedPayload(t, fields))
		assert.NoError(t, err)
	})

	t.Run("unparseable user claims rejected", func(t *testing.T) {
		fields := miniAppFields(now)
		fields["user"] = "{not json"
		_, err := v.Verify(ctx, signedPayload(t, fields))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidProof))
	})

	t.Run("missing hash rejected", func(t *testing.T) {
		values := url.Values{}
		for k, val := range miniAppFields(now) {
			values.Set(k, val)
		}
		_, err := v.Verify(ctx, values.Encode())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidProof))
	})
}
