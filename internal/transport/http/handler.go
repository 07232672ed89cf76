// Package httptransport exposes the identity core over HTTP. Handlers stay
// thin: decode, call the service, map coded errors to statuses.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trustgate/internal/identity/service"
	"trustgate/internal/identity/verifier"
	"trustgate/internal/platform/token"
	"trustgate/internal/trust"
	dErrors "trustgate/pkg/domain-errors"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/httputil"
	"trustgate/pkg/requestcontext"
)

// IdentityService is the facade the handlers call.
type IdentityService interface {
	LoginMiniApp(ctx context.Context, payload string) (service.LoginResult, error)
	LoginWallet(ctx context.Context, proof verifier.WalletProof) (service.LoginResult, error)
	SocialStart(ctx context.Context) (verifier.StartResult, error)
	SocialCallback(ctx context.Context, code, state string) (service.SocialCallbackResult, error)
	SocialDisconnect(ctx context.Context, accessToken string) error
	IssueLinkCode(ctx context.Context) (string, error)
	ClaimLinkCode(ctx context.Context, code string) error
	ReportSignal(ctx context.Context, accountID id.AccountID, fact service.Fact) (trust.Result, error)
	TrustScore(ctx context.Context, accountID id.AccountID) (trust.Result, error)
}

// Handler wires the identity endpoints to the service.
type Handler struct {
	svc    IdentityService
	tokens token.Issuer
	logger *slog.Logger
}

func NewHandler(svc IdentityService, tokens token.Issuer, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the identity endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/auth/miniapp", h.handleMiniApp)
	r.Post("/v1/auth/wallet", h.handleWallet)
	r.Post("/v1/auth/social/start", h.handleSocialStart)
	r.Get("/v1/auth/social/callback", h.handleSocialCallback)
	r.Delete("/v1/auth/social", h.handleSocialDisconnect)
	r.Post("/v1/auth/link-code", h.handleIssueLinkCode)
	r.Post("/v1/auth/link-code/claim", h.handleClaimLinkCode)
	r.Post("/v1/accounts/{id}/signals", h.handleReportSignal)
	r.Get("/v1/accounts/{id}/trust", h.handleTrustScore)
}

type loginResponse struct {
	AccountID    string `json:"account_id"`
	IsNew        bool   `json:"is_new"`
	SessionToken string `json:"session_token"`
}

func (h *Handler) loginResponse(ctx context.Context, result service.LoginResult) (loginResponse, error) {
	sessionToken, err := h.tokens.Issue(result.AccountID, requestcontext.Now(ctx))
	if err != nil {
		return loginResponse{}, err
	}
	return loginResponse{
		AccountID:    result.AccountID.String(),
		IsNew:        result.IsNew,
		SessionToken: sessionToken,
	}, nil
}

func (h *Handler) handleMiniApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[struct {
		Payload string `json:"payload"`
	}](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Payload == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "payload is required"))
		return
	}

	result, err := h.svc.LoginMiniApp(ctx, req.Payload)
	if err != nil {
		h.logFailure(ctx, "miniapp login failed", err)
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.loginResponse(ctx, result)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[struct {
		Address   string `json:"address"`
		Signature string `json:"signature"`
		Message   string `json:"message"`
		TxMessage string `json:"txMessage,omitempty"`
	}](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Address == "" || req.Signature == "" || req.Message == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "address, signature and message are required"))
		return
	}

	result, err := h.svc.LoginWallet(ctx, verifier.WalletProof{
		Address:   req.Address,
		Signature: req.Signature,
		Message:   req.Message,
		TxMessage: req.TxMessage,
	})
	if err != nil {
		h.logFailure(ctx, "wallet login failed", err)
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.loginResponse(ctx, result)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSocialStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.svc.SocialStart(ctx)
	if err != nil {
		h.logFailure(ctx, "social start failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"authorize_url": result.AuthorizeURL,
		"state":         result.State,
	})
}

func (h *Handler) handleSocialCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "code and state are required"))
		return
	}

	result, err := h.svc.SocialCallback(ctx, code, state)
	if err != nil {
		h.logFailure(ctx, "social callback failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"account_id":   result.AccountID.String(),
		"access_token": result.AccessToken,
	})
}

func (h *Handler) handleSocialDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[struct {
		AccessToken string `json:"access_token"`
	}](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.SocialDisconnect(ctx, req.AccessToken); err != nil {
		h.logFailure(ctx, "social disconnect failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIssueLinkCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code, err := h.svc.IssueLinkCode(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *Handler) handleClaimLinkCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[struct {
		Code string `json:"code"`
	}](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Code == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "code is required"))
		return
	}
	if err := h.svc.ClaimLinkCode(ctx, req.Code); err != nil {
		h.logFailure(ctx, "link code claim failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReportSignal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := id.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[struct {
		Fact string `json:"fact"`
	}](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	fact := service.Fact(req.Fact)
	switch fact {
	case service.FactHandshake, service.FactEvent, service.FactCommunity:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "fact must be handshake, event or community"))
		return
	}

	result, err := h.svc.ReportSignal(ctx, accountID, fact)
	if err != nil {
		h.logFailure(ctx, "signal report failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTrustScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := id.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.svc.TrustScore(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"code", string(dErrors.CodeOf(err)),
		"error", err,
	)
}
