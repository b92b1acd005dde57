package http_handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omnisphere/auth-service/internal/application/auth"
	"github.com/omnisphere/auth-service/internal/domain"
	"github.com/omnisphere/auth-service/internal/infrastructure/provider"
	"github.com/omnisphere/auth-service/internal/logger"
	"github.com/omnisphere/auth-service/internal/transport/http/dto"
	"github.com/omnisphere/auth-service/internal/transport/http/middleware"
	"github.com/omnisphere/auth-service/internal/transport/http/response"
)

// LinkHandler manages provider links on an authenticated account.
type LinkHandler struct {
	svc       *auth.Service
	providers *provider.Registry
}

func NewLinkHandler(svc *auth.Service, providers *provider.Registry) *LinkHandler {
	return &LinkHandler{svc: svc, providers: providers}
}

// Link handles POST /auth/v1/link/{provider}. The caller proves control of
// the external identity with a fresh provider credential.
func (h *LinkHandler) Link(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	p, err := dto.ParseProviderParam(chi.URLParam(r, "provider"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	client, err := h.providers.Get(p)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.LinkRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	identity, err := client.Normalize(r.Context(), toCredential(req.ProviderCredential))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.LinkAccount(r.Context(), userID, identity); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", userID).
		Str("provider", string(p)).
		Msg("account_linked")

	status, err := h.svc.LinkedAccounts(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewLinkedStatusData(status))
}

// Unlink handles DELETE /auth/v1/link/{provider}. Local-only: no provider
// calls are made.
func (h *LinkHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	p, err := dto.ParseProviderParam(chi.URLParam(r, "provider"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.UnlinkAccount(r.Context(), userID, p); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", userID).
		Str("provider", string(p)).
		Msg("account_unlinked")

	status, err := h.svc.LinkedAccounts(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewLinkedStatusData(status))
}

// Status handles GET /auth/v1/link. Reads the stored record only.
func (h *LinkHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	status, err := h.svc.LinkedAccounts(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewLinkedStatusData(status))
}
