package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trustgate/internal/identity/models"
	"trustgate/internal/identity/store/account"
	"trustgate/internal/identity/store/artifact"
	"trustgate/internal/identity/verifier"
	"trustgate/internal/merge"
	"trustgate/internal/platform/metrics"
	"trustgate/internal/trust"
	dErrors "trustgate/pkg/domain-errors"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/audit"
	"trustgate/pkg/platform/audit/publisher"
	"trustgate/pkg/platform/sentinel"
	"trustgate/pkg/requestcontext"
)

// Service is the identity facade the transport calls. Each login pipeline is
// verify, resolve, merge if the proof belongs elsewhere, then recompute
// trust before returning.
type Service struct {
	miniApp *verifier.MiniApp
	wallet  *verifier.Wallet
	oauth   *verifier.OAuth

	resolver  *Resolver
	guard     *Guard
	merges    *merge.Engine
	trust     *trust.Engine
	accounts  account.Store
	artifacts artifact.Store

	logger      *slog.Logger
	metrics     *metrics.Metrics
	auditor     *publisher.Publisher
	tracer      trace.Tracer
	linkCodeTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(p *publisher.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithLinkCodeTTL overrides the default five-minute link code lifetime.
func WithLinkCodeTTL(ttl time.Duration) Option {
	return func(s *Service) { s.linkCodeTTL = ttl }
}

func New(
	miniApp *verifier.MiniApp,
	wallet *verifier.Wallet,
	oauth *verifier.OAuth,
	resolver *Resolver,
	guard *Guard,
	merges *merge.Engine,
	trustEngine *trust.Engine,
	accounts account.Store,
	artifacts artifact.Store,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		miniApp:     miniApp,
		wallet:      wallet,
		oauth:       oauth,
		resolver:    resolver,
		guard:       guard,
		merges:      merges,
		trust:       trustEngine,
		accounts:    accounts,
		artifacts:   artifacts,
		logger:      logger,
		tracer:      otel.Tracer("trustgate/identity"),
		linkCodeTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is the outcome of a resolved login.
type LoginResult struct {
	AccountID id.AccountID
	IsNew     bool
}

// LoginMiniApp verifies a mini-app payload and resolves its messaging
// identity, provisioning a placeholder account on first contact.
func (s *Service) LoginMiniApp(ctx context.Context, payload string) (LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "verify.messaging",
		trace.WithAttributes(attribute.String("verify.provider", string(id.ProviderMessaging))))
	defer span.End()

	identity, err := s.miniApp.Verify(ctx, payload)
	s.observe("messaging", err)
	if err != nil {
		return LoginResult{}, err
	}

	accountID, isNew, err := s.resolver.Resolve(ctx, identity)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{AccountID: accountID, IsNew: isNew}, nil
}

// LoginWallet verifies a wallet signature and resolves its identity. An
// authenticated caller whose account differs from the wallet's owner is a
// placeholder being absorbed: the caller's account merges into the owner.
// The uniqueness check runs before resolution, so a rejected proof never
// provisions an account or writes a link.
func (s *Service) LoginWallet(ctx context.Context, proof verifier.WalletProof) (LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "verify.wallet",
		trace.WithAttributes(attribute.String("verify.provider", string(id.ProviderWallet))))
	defer span.End()

	identity, err := s.wallet.Verify(ctx, proof)
	s.observe("wallet", err)
	if err != nil {
		return LoginResult{}, err
	}

	// The guard runs before resolution: a rejected proof must leave no
	// provisional account or link behind.
	claimant, err := s.resolver.Owner(ctx, identity)
	if err != nil {
		return LoginResult{}, err
	}
	if claimant.IsZero() {
		claimant = requestcontext.AccountID(ctx)
	}
	if err := s.guard.CheckWallet(ctx, proof.Address, claimant); err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyLinked) {
			s.emit(ctx, claimant, audit.EventLinkConflict, map[string]string{
				"provider_kind": string(id.ProviderWallet),
				"provider_id":   proof.Address,
			})
		}
		return LoginResult{}, err
	}

	accountID, isNew, err := s.resolveWithCaller(ctx, identity)
	if err != nil {
		return LoginResult{}, err
	}

	now := requestcontext.Now(ctx)
	if _, err := s.trust.Apply(ctx, accountID, func(sig *trust.Signals) {
		sig.WalletAddress = proof.Address
		sig.WalletConnected = true
		sig.WalletVerified = true
		if sig.WalletFirstSeen == nil {
			sig.WalletFirstSeen = &now
		}
	}); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{AccountID: accountID, IsNew: isNew}, nil
}

// SocialStart begins the OAuth flow for the authenticated caller.
func (s *Service) SocialStart(ctx context.Context) (verifier.StartResult, error) {
	caller := requestcontext.AccountID(ctx)
	if caller.IsZero() {
		return verifier.StartResult{}, dErrors.New(dErrors.CodeUnauthorized, "social linking requires an authenticated session")
	}
	if _, err := s.accounts.FindByID(ctx, caller); err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return verifier.StartResult{}, dErrors.New(dErrors.CodeNotFound, "account does not exist")
		}
		return verifier.StartResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return s.oauth.Start(ctx, caller)
}

// SocialCallbackResult is the outcome of a completed OAuth flow. AccessToken
// is handed back for the caller to hold; the core stores no provider tokens.
type SocialCallbackResult struct {
	AccountID   id.AccountID
	AccessToken string
}

// SocialCallback completes the OAuth flow: validates state, exchanges the
// code, links the social identity, and folds the verified signal in. A
// social identity already owned by a different account absorbs the flow's
// placeholder account through a merge.
func (s *Service) SocialCallback(ctx context.Context, code, state string) (SocialCallbackResult, error) {
	ctx, span := s.tracer.Start(ctx, "verify.social",
		trace.WithAttributes(attribute.String("verify.provider", string(id.ProviderSocial))))
	defer span.End()

	res, err := s.oauth.HandleCallback(ctx, code, state)
	s.observe("social", err)
	if err != nil {
		return SocialCallbackResult{}, err
	}

	// The guard runs before linking or merging: a conflicting identity must
	// not destroy the caller's account first.
	claimant, err := s.resolver.Owner(ctx, res.Identity)
	if err != nil {
		return SocialCallbackResult{}, err
	}
	if claimant.IsZero() {
		claimant = res.AccountID
	}
	if err := s.guard.CheckSocial(ctx, res.Identity.ProviderID, res.Identity.Claims.Handle, claimant); err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyLinked) {
			s.emit(ctx, claimant, audit.EventLinkConflict, map[string]string{
				"provider_kind": string(id.ProviderSocial),
				"provider_id":   res.Identity.ProviderID,
			})
		}
		return SocialCallbackResult{}, err
	}

	accountID, err := s.resolver.ResolveFor(ctx, res.Identity, res.AccountID)
	if err != nil {
		return SocialCallbackResult{}, err
	}
	if accountID != res.AccountID {
		if err := s.merges.Merge(ctx, res.AccountID, accountID); err != nil {
			return SocialCallbackResult{}, err
		}
	}

	now := requestcontext.Now(ctx)
	if _, err := s.trust.Apply(ctx, accountID, func(sig *trust.Signals) {
		sig.SocialProviderID = res.Identity.ProviderID
		sig.SocialHandle = res.Identity.Claims.Handle
		sig.SocialVerified = true
		sig.SocialPremium = res.Identity.Claims.Premium
		if sig.SocialFirstSeen == nil {
			sig.SocialFirstSeen = &now
		}
	}); err != nil {
		return SocialCallbackResult{}, err
	}
	return SocialCallbackResult{AccountID: accountID, AccessToken: res.AccessToken}, nil
}

// SocialDisconnect clears the caller's social signals and attempts
// best-effort token revocation at the provider. Revocation failure is
// logged, never surfaced.
func (s *Service) SocialDisconnect(ctx context.Context, accessToken string) error {
	caller := requestcontext.AccountID(ctx)
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "disconnect requires an authenticated session")
	}

	if _, err := s.trust.Apply(ctx, caller, func(sig *trust.Signals) {
		sig.SocialProviderID = ""
		sig.SocialHandle = ""
		sig.SocialVerified = false
		sig.SocialPremium = false
		sig.SocialFirstSeen = nil
	}); err != nil {
		return err
	}

	if accessToken != "" {
		if err := s.oauth.Revoke(ctx, accessToken); err != nil {
			s.logger.Warn("social token revocation failed", "account_id", caller.String(), "error", err)
		}
	}
	s.emit(ctx, caller, audit.EventSocialDisconnected, nil)
	return nil
}

// IssueLinkCode hands the authenticated caller a short-lived single-use code
// a browser session can later claim to tie itself to this account.
func (s *Service) IssueLinkCode(ctx context.Context) (string, error) {
	caller := requestcontext.AccountID(ctx)
	if caller.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "issuing a link code requires an authenticated session")
	}
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate link code")
	}
	code := base64.RawURLEncoding.EncodeToString(raw)
	if err := s.artifacts.SaveLinkCode(ctx, code, caller, s.linkCodeTTL); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store link code")
	}
	return code, nil
}

// ClaimLinkCode consumes a link code from an authenticated durable session.
// When the code's placeholder account differs from the caller, the
// placeholder merges into the caller's account.
func (s *Service) ClaimLinkCode(ctx context.Context, code string) error {
	caller := requestcontext.AccountID(ctx)
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "claiming a link code requires an authenticated session")
	}

	placeholder, err := s.artifacts.ConsumeLinkCode(ctx, code)
	switch {
	case dErrors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "link code is unknown or expired")
	case dErrors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "link code was already used")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume link code")
	}

	if placeholder == caller {
		return nil
	}
	return s.merges.Merge(ctx, placeholder, caller)
}

// Fact names one reportable raw trust fact.
type Fact string

const (
	FactHandshake Fact = "handshake"
	FactEvent     Fact = "event"
	FactCommunity Fact = "community"
)

// ReportSignal applies one raw fact to the account's signals and recomputes
// the composite before returning, so any subsequent score read reflects it.
func (s *Service) ReportSignal(ctx context.Context, accountID id.AccountID, fact Fact) (trust.Result, error) {
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return trust.Result{}, dErrors.New(dErrors.CodeNotFound, "account does not exist")
		}
		return trust.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	now := requestcontext.Now(ctx)
	result, err := s.trust.Apply(ctx, accountID, func(sig *trust.Signals) {
		switch fact {
		case FactHandshake:
			sig.HandshakeCount++
			if sig.FirstHandshakeAt == nil {
				sig.FirstHandshakeAt = &now
			}
		case FactEvent:
			sig.EventCount++
		case FactCommunity:
			sig.CommunityCount++
		}
	})
	if err != nil {
		return trust.Result{}, err
	}
	s.emit(ctx, accountID, audit.EventTrustRecomputed, map[string]string{"fact": string(fact)})
	return result, nil
}

// TrustScore returns the stored trust read model for an account.
func (s *Service) TrustScore(ctx context.Context, accountID id.AccountID) (trust.Result, error) {
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return trust.Result{}, dErrors.New(dErrors.CodeNotFound, "account does not exist")
		}
		return trust.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return s.trust.Score(ctx, accountID)
}

// resolveWithCaller resolves a durable-identity proof relative to the
// authenticated caller. An unclaimed proof links to the caller's account; a
// proof owned elsewhere absorbs the caller's placeholder through a merge.
// Anonymous callers resolve normally, provisioning a placeholder on first
// contact.
func (s *Service) resolveWithCaller(ctx context.Context, identity models.VerifiedIdentity) (id.AccountID, bool, error) {
	caller := requestcontext.AccountID(ctx)
	if caller.IsZero() {
		return s.resolver.Resolve(ctx, identity)
	}

	accountID, err := s.resolver.ResolveFor(ctx, identity, caller)
	if err != nil {
		return id.AccountID{}, false, err
	}
	if accountID != caller {
		if err := s.merges.Merge(ctx, caller, accountID); err != nil {
			return id.AccountID{}, false, err
		}
	}
	return accountID, false, nil
}

func (s *Service) observe(provider string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.ObserveVerification(provider, outcome)
}

func (s *Service) emit(ctx context.Context, accountID id.AccountID, action audit.Action, metadata map[string]string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{AccountID: accountID, Action: action, Metadata: metadata})
}
