package dto

import (
	"strings"

	"github.com/omnisphere/auth-service/internal/domain"
)

// -------- Core auth --------

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,password_strength"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	return validateStruct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	return validateStruct(r)
}

// Refresh token arrives in the HttpOnly cookie; a JSON body value is an
// accepted fallback for non-browser clients.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (r *RefreshRequest) Validate() error { return nil }

type LogoutRequest struct{}

// -------- Provider auth --------

// ProviderCredential carries whichever credential the provider flow uses:
// an authorization code, a bearer access token, or a signed payload.
type ProviderCredential struct {
	Code        string            `json:"code,omitempty"`
	AccessToken string            `json:"access_token,omitempty"`
	AuthData    map[string]string `json:"auth_data,omitempty"`
}

type ProviderLoginRequest struct {
	ProviderCredential
}

func (r *ProviderLoginRequest) Validate() error {
	// Which credential is required depends on the provider; the provider
	// client reports missing_credential with the exact field name.
	return nil
}

type LinkRequest struct {
	ProviderCredential
}

func (r *LinkRequest) Validate() error { return nil }

// -------- Availability checks --------

type CheckEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *CheckEmailRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	return validateStruct(r)
}

type CheckUsernameRequest struct {
	Username string `json:"username" validate:"required,min=1,max=150"`
}

func (r *CheckUsernameRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	return validateStruct(r)
}

// -------- Password reset --------

// Step A: request a confirmation code by email.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *PasswordResetRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	return validateStruct(r)
}

// Step B: confirm with the emailed code and set the new password.
type PasswordResetConfirmRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,password_strength"`
}

func (r *PasswordResetConfirmRequest) Validate() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.Code = strings.TrimSpace(r.Code)
	return validateStruct(r)
}

// -------- Unlink --------

type UnlinkRequest struct{}

func ParseProviderParam(name string) (domain.Provider, error) {
	return domain.ParseProvider(strings.ToLower(strings.TrimSpace(name)))
}
