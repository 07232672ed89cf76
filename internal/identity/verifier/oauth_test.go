package verifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
	"trustgate/pkg/requestcontext"
)

// fakeProvider stands in for the social platform's token, profile and revoke
// endpoints.
type fakeProvider struct {
	server       *httptest.Server
	lastVerifier string
	revoked      []string
	tokenStatus  int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{tokenStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		fp.lastVerifier = form.Get("code_verifier")
		if fp.tokenStatus != http.StatusOK {
			w.WriteHeader(fp.tokenStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "99887766", "name": "Ada L", "username": "adal", "verified": true},
		})
	})
	mux.HandleFunc("/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		fp.revoked = append(fp.revoked, form.Get("token"))
	})
	fp.server = httptest.NewServer(mux)
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakeProvider) config() OAuthConfig {
	return OAuthConfig{
		ClientID:     "client-abc",
		RedirectURI:  "https://app.example/callback",
		AuthorizeURL: fp.server.URL + "/oauth2/authorize",
		TokenURL:     fp.server.URL + "/oauth2/token",
		ProfileURL:   fp.server.URL + "/users/me",
		RevokeURL:    fp.server.URL + "/oauth2/revoke",
		StateSecret:  "state-secret",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOAuth_StartAndCallback(t *testing.T) {
	fp := newFakeProvider(t)
	o := NewOAuth(fp.config(), fp.server.Client(), testLogger())

	started := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	startCtx := requestcontext.WithTime(context.Background(), started)
	accountID := id.NewAccountID()

	result, err := o.Start(startCtx, accountID)
	require.NoError(t, err)

	authURL, err := url.Parse(result.AuthorizeURL)
	require.NoError(t, err)
	assert.Equal(t, "S256", authURL.Query().Get("code_challenge_method"))
	assert.NotEmpty(t, authURL.Query().Get("code_challenge"))
	assert.Equal(t, result.State, authURL.Query().Get("state"))

	cbCtx := requestcontext.WithTime(context.Background(), started.Add(9*time.Minute))
	cb, err := o.HandleCallback(cbCtx, "auth-code", result.State)
	require.NoError(t, err)
	assert.Equal(t, accountID, cb.AccountID)
	assert.Equal(t, id.ProviderSocial, cb.Identity.ProviderKind)
	assert.Equal(t, "99887766", cb.Identity.ProviderID)
	assert.Equal(t, "adal", cb.Identity.Claims.Handle)
	assert.True(t, cb.Identity.Claims.Premium)
	assert.NotEmpty(t, fp.lastVerifier, "exchange must send the original code verifier")
}

func TestOAuth_StateExpiry(t *testing.T) {
	fp := newFakeProvider(t)
	o := NewOAuth(fp.config(), fp.server.Client(), testLogger())

	started := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	result, err := o.Start(requestcontext.WithTime(context.Background(), started), id.NewAccountID())
	require.NoError(t, err)

	t.Run("presented at T+11m is expired", func(t *testing.T) {
		ctx := requestcontext.WithTime(context.Background(), started.Add(11*time.Minute))
		_, err := o.HandleCallback(ctx, "auth-code", result.State)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExpiredProof))
	})

	t.Run("presented at T+9m with flipped signature char is invalid", func(t *testing.T) {
		data, sig, ok := strings.Cut(result.State, ".")
		require.True(t, ok)
		flipped := []byte(sig)
		if flipped[0] == 'A' {
			flipped[0] = 'B'
		} else {
			flipped[0] = 'A'
		}
		ctx := requestcontext.WithTime(context.Background(), started.Add(9*time.Minute))
		_, err := o.HandleCallback(ctx, "auth-code", data+"."+string(flipped))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidProof))
	})
}

func TestOAuth_ProviderFailures(t *testing.T) {
	fp := newFakeProvider(t)
	o := NewOAuth(fp.config(), fp.server.Client(), testLogger())

	started := time.Now()
	result, err := o.Start(requestcontext.WithTime(context.Background(), started), id.NewAccountID())
	require.NoError(t, err)

	t.Run("5xx from token endpoint is retryable", func(t *testing.T) {
		fp.tokenStatus = http.StatusBadGateway
		defer func() { fp.tokenStatus = http.StatusOK }()
		_, err := o.HandleCallback(context.Background(), "auth-code", result.State)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeProviderUnavailable))
	})

	t.Run("4xx from token endpoint is terminal", func(t *testing.T) {
		fp.tokenStatus = http.StatusBadRequest
		defer func() { fp.tokenStatus = http.StatusOK }()
		_, err := o.HandleCallback(context.Background(), "bad-code", result.State)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidProof))
	})
}

func TestOAuth_Revoke(t *testing.T) {
	fp := newFakeProvider(t)
	o := NewOAuth(fp.config(), fp.server.Client(), testLogger())

	require.NoError(t, o.Revoke(context.Background(), "tok-123"))
	assert.Equal(t, []string{"tok-123"}, fp.revoked)

	// Unreachable revoke endpoint returns an error; callers log and move on.
	broken := fp.config()
	broken.RevokeURL = "http://127.0.0.1:1/revoke"
	o2 := NewOAuth(broken, &http.Client{Timeout: 200 * time.Millisecond}, testLogger())
	assert.Error(t, o2.Revoke(context.Background(), "tok-123"))
}
