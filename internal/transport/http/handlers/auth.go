package http_handlers

import (
	"net/http"
	"time"

	"github.com/omnisphere/auth-service/internal/application/auth"
	"github.com/omnisphere/auth-service/internal/domain"
	"github.com/omnisphere/auth-service/internal/infrastructure/security"
	"github.com/omnisphere/auth-service/internal/logger"
	"github.com/omnisphere/auth-service/internal/transport/http/dto"
	"github.com/omnisphere/auth-service/internal/transport/http/middleware"
	"github.com/omnisphere/auth-service/internal/transport/http/response"
)

type AuthHandler struct {
	svc           *auth.Service
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(svc *auth.Service, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_registered")

	security.SetRefreshToken(w, res.Tokens.RefreshToken, h.refreshTTL, h.secureCookies)

	response.Created(w, dto.AuthData{
		User:   dto.NewUserView(res.User),
		Tokens: tokensView(res.Tokens),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	security.SetRefreshToken(w, res.Tokens.RefreshToken, h.refreshTTL, h.secureCookies)

	response.OK(w, dto.AuthData{
		User:   dto.NewUserView(res.User),
		Tokens: tokensView(res.Tokens),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshTok := h.refreshTokenFromRequest(r)
	if refreshTok == "" {
		response.WriteError(w, r, domain.ErrRefreshTokenInvalid())
		return
	}

	toks, err := h.svc.Refresh(r.Context(), refreshTok)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.SetRefreshToken(w, toks.RefreshToken, h.refreshTTL, h.secureCookies)

	response.OK(w, dto.RefreshData{
		Tokens: tokensView(toks),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if refreshTok := h.refreshTokenFromRequest(r); refreshTok != "" {
		_ = h.svc.Logout(r.Context(), refreshTok) // keep idempotent
	}

	security.ClearRefreshToken(w, h.secureCookies)
	response.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	u, err := h.svc.GetUserByID(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.MeData{User: dto.NewUserView(u)})
}

func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckEmailRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	exists, err := h.svc.EmailExists(r.Context(), req.Email)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.ExistsData{Exists: exists})
}

func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckUsernameRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	exists, err := h.svc.UsernameExists(r.Context(), req.Username)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.ExistsData{Exists: exists})
}

func (h *AuthHandler) PasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	err := h.svc.PasswordResetRequest(r.Context(), req.Email)
	if err != nil && !domain.Is(err, "user_not_found") {
		response.WriteError(w, r, err)
		return
	}

	// Always 200 for known-or-unknown email to avoid account enumeration.
	response.OK(w, dto.StatusData{Status: "ok"})
}

func (h *AuthHandler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetConfirmRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.PasswordResetConfirm(r.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("password_reset_confirmed")

	security.SetRefreshToken(w, res.Tokens.RefreshToken, h.refreshTTL, h.secureCookies)

	response.OK(w, dto.AuthData{
		User:   dto.NewUserView(res.User),
		Tokens: tokensView(res.Tokens),
	})
}

// refreshTokenFromRequest prefers the HttpOnly cookie and falls back to a
// JSON body for non-browser clients.
func (h *AuthHandler) refreshTokenFromRequest(r *http.Request) string {
	if tok, err := security.ReadRefreshToken(r); err == nil && tok != "" {
		return tok
	}
	var req dto.RefreshRequest
	if err := response.DecodeJSON(r, &req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func tokensView(t auth.AuthTokens) dto.TokensView {
	return dto.TokensView{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresIn:   t.ExpiresIn,
	}
}
