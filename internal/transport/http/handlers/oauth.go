package http_handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/omnisphere/auth-service/internal/application/auth"
	"github.com/omnisphere/auth-service/internal/infrastructure/provider"
	"github.com/omnisphere/auth-service/internal/infrastructure/security"
	"github.com/omnisphere/auth-service/internal/logger"
	"github.com/omnisphere/auth-service/internal/transport/http/dto"
	"github.com/omnisphere/auth-service/internal/transport/http/response"
)

// ProviderHandler handles provider-backed login: the client ships a
// provider credential, we verify it upstream, resolve the identity to a
// local account, and issue our own session.
type ProviderHandler struct {
	svc           *auth.Service
	providers     *provider.Registry
	refreshTTL    time.Duration
	secureCookies bool
}

func NewProviderHandler(svc *auth.Service, providers *provider.Registry, refreshTTL time.Duration, secureCookies bool) *ProviderHandler {
	return &ProviderHandler{
		svc:           svc,
		providers:     providers,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

// Login handles POST /auth/v1/login/{provider}.
func (h *ProviderHandler) Login(w http.ResponseWriter, r *http.Request) {
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

	var req dto.ProviderLoginRequest
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

	res, kind, err := h.svc.AuthenticateProvider(r.Context(), identity)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Str("provider", string(p)).
		Str("outcome", string(kind)).
		Msg("provider_login")

	security.SetRefreshToken(w, res.Tokens.RefreshToken, h.refreshTTL, h.secureCookies)

	response.OK(w, dto.ProviderAuthData{
		User:    dto.NewUserView(res.User),
		Tokens:  tokensView(res.Tokens),
		Outcome: string(kind),
	})
}

func toCredential(c dto.ProviderCredential) provider.Credential {
	return provider.Credential{
		Code:        c.Code,
		AccessToken: c.AccessToken,
		Payload:     c.AuthData,
	}
}
