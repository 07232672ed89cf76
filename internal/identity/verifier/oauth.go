package verifier

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trustgate/internal/identity/crypto"
	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
	"trustgate/pkg/requestcontext"
)

// OAuthConfig holds the social provider's client settings.
type OAuthConfig struct {
	ClientID     string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string
	RevokeURL    string
	StateSecret  string
}

// OAuth runs the two-phase PKCE flow against the social provider. The state
// between Start and HandleCallback lives entirely in the HMAC-signed state
// token, so the verifier itself stays stateless.
type OAuth struct {
	cfg      OAuthConfig
	client   *http.Client
	stateTTL time.Duration
	logger   *slog.Logger
}

func NewOAuth(cfg OAuthConfig, client *http.Client, logger *slog.Logger) *OAuth {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &OAuth{cfg: cfg, client: client, stateTTL: 10 * time.Minute, logger: logger}
}

// statePayload binds the PKCE verifier to the caller's account and an issue
// time. It travels inside the signed state token.
type statePayload struct {
	AccountID    string `json:"account_id"`
	CodeVerifier string `json:"code_verifier"`
	IssuedAtMS   int64  `json:"issued_at_ms"`
}

// StartResult is the Init-phase output.
type StartResult struct {
	AuthorizeURL string
	State        string
}

// Start generates a PKCE verifier and challenge, binds them into a signed
// state token, and returns the authorization URL.
func (o *OAuth) Start(ctx context.Context, accountID id.AccountID) (StartResult, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return StartResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code verifier")
	}
	codeVerifier := base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(codeVerifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	payload, err := json.Marshal(statePayload{
		AccountID:    accountID.String(),
		CodeVerifier: codeVerifier,
		IssuedAtMS:   requestcontext.Now(ctx).UnixMilli(),
	})
	if err != nil {
		return StartResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode state payload")
	}
	state := crypto.SignToken(payload, []byte(o.cfg.StateSecret))

	query := url.Values{
		"response_type":         {"code"},
		"client_id":             {o.cfg.ClientID},
		"redirect_uri":          {o.cfg.RedirectURI},
		"scope":                 {"users.read tweet.read offline.access"},
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}
	return StartResult{
		AuthorizeURL: o.cfg.AuthorizeURL + "?" + query.Encode(),
		State:        state,
	}, nil
}

// CallbackResult is the Verified-phase output: the normalized identity, the
// account the flow was started from, and the provider access token (kept
// only long enough for the caller to store or discard).
type CallbackResult struct {
	Identity    models.VerifiedIdentity
	AccountID   id.AccountID
	AccessToken string
}

// HandleCallback validates the returned state token, exchanges the
// authorization code with the original verifier, and fetches the provider
// profile. Tampered state is an invalid proof; state older than ten minutes
// is expired.
func (o *OAuth) HandleCallback(ctx context.Context, code, state string) (CallbackResult, error) {
	payloadRaw, err := crypto.VerifyToken(state, []byte(o.cfg.StateSecret))
	if err != nil {
		return CallbackResult{}, err
	}
	var payload statePayload
	if err := json.Unmarshal(payloadRaw, &payload); err != nil {
		return CallbackResult{}, dErrors.Wrap(err, dErrors.CodeInvalidProof, "state payload is not parseable")
	}
	issued := time.UnixMilli(payload.IssuedAtMS)
	if requestcontext.Now(ctx).Sub(issued) > o.stateTTL {
		return CallbackResult{}, dErrors.New(dErrors.CodeExpiredProof, "state token is older than ten minutes")
	}
	accountID, err := id.ParseAccountID(payload.AccountID)
	if err != nil {
		return CallbackResult{}, dErrors.Wrap(err, dErrors.CodeInvalidProof, "state payload carries an invalid account id")
	}

	accessToken, err := o.exchangeCode(ctx, code, payload.CodeVerifier)
	if err != nil {
		return CallbackResult{}, err
	}
	identity, err := o.fetchProfile(ctx, accessToken)
	if err != nil {
		return CallbackResult{}, err
	}
	return CallbackResult{Identity: identity, AccountID: accountID, AccessToken: accessToken}, nil
}

func (o *OAuth) exchangeCode(ctx context.Context, code, codeVerifier string) (string, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {o.cfg.RedirectURI},
		"client_id":     {o.cfg.ClientID},
		"code_verifier": {codeVerifier},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	switch {
	case resp.StatusCode >= 500:
		return "", dErrors.Newf(dErrors.CodeProviderUnavailable, "token endpoint returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", dErrors.Newf(dErrors.CodeInvalidProof, "authorization code rejected with %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return "", dErrors.New(dErrors.CodeProviderUnavailable, "token response is not parseable")
	}
	return token.AccessToken, nil
}

func (o *OAuth) fetchProfile(ctx context.Context, accessToken string) (models.VerifiedIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.ProfileURL, nil)
	if err != nil {
		return models.VerifiedIdentity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build profile request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := o.client.Do(req)
	if err != nil {
		return models.VerifiedIdentity{}, dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "profile endpoint unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.VerifiedIdentity{}, dErrors.Newf(dErrors.CodeProviderUnavailable, "profile endpoint returned %d", resp.StatusCode)
	}

	var profile struct {
		Data struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
			Verified bool   `json:"verified"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return models.VerifiedIdentity{}, dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "profile response is not parseable")
	}
	if profile.Data.ID == "" {
		return models.VerifiedIdentity{}, dErrors.New(dErrors.CodeProviderUnavailable, "profile response is missing an id")
	}

	return models.VerifiedIdentity{
		ProviderKind: id.ProviderSocial,
		ProviderID:   profile.Data.ID,
		Claims: models.Claims{
			DisplayName: profile.Data.Name,
			Handle:      profile.Data.Username,
			Premium:     profile.Data.Verified,
		},
	}, nil
}

// Revoke attempts to invalidate an access token at the provider. Best effort:
// failures are logged by the caller and never fail a disconnect.
func (o *OAuth) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{
		"token":     {accessToken},
		"client_id": {o.cfg.ClientID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("revoke endpoint returned %d", resp.StatusCode)
	}
	return nil
}
