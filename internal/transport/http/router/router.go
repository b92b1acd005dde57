package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	// Core auth
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)

	// Availability checks
	CheckEmail(w http.ResponseWriter, r *http.Request)
	CheckUsername(w http.ResponseWriter, r *http.Request)

	// Password reset
	PasswordResetRequest(w http.ResponseWriter, r *http.Request)
	PasswordResetConfirm(w http.ResponseWriter, r *http.Request)
}

type ProviderHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
}

type LinkHandler interface {
	Link(w http.ResponseWriter, r *http.Request)
	Unlink(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health   HealthHandler
	Auth     AuthHandler
	Provider ProviderHandler
	Link     LinkHandler

	RequestID func(http.Handler) http.Handler
	AuthMW    func(http.Handler) http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("nil Provider handler")
	}
	if deps.Link == nil {
		return nil, fmt.Errorf("nil Link handler")
	}
	if deps.RequestID == nil {
		return nil, fmt.Errorf("nil RequestID middleware")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}

	r := chi.NewRouter()
	r.Use(deps.RequestID)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)

	r.Route("/auth/v1", func(r chi.Router) {
		// --- Core auth ---
		r.Post("/register", deps.Auth.Register)
		r.Post("/login", deps.Auth.Login)
		r.Post("/refresh", deps.Auth.Refresh)
		r.Post("/logout", deps.Auth.Logout)
		r.With(deps.AuthMW).Get("/me", deps.Auth.Me)

		// --- Provider sign-in ---
		r.Post("/login/{provider}", deps.Provider.Login)

		// --- Availability checks ---
		r.Post("/check/email", deps.Auth.CheckEmail)
		r.Post("/check/username", deps.Auth.CheckUsername)

		// --- Password reset ---
		r.Post("/password/reset/request", deps.Auth.PasswordResetRequest)
		r.Post("/password/reset/confirm", deps.Auth.PasswordResetConfirm)

		// --- Account linking ---
		r.Route("/link", func(r chi.Router) {
			r.Use(deps.AuthMW)

			r.Get("/", deps.Link.Status)
			r.Post("/{provider}", deps.Link.Link)
			r.Delete("/{provider}", deps.Link.Unlink)
		})
	})

	return r, nil
}
