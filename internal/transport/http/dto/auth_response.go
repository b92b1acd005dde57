package dto

import "github.com/omnisphere/auth-service/internal/domain"

// UserView is the standard user payload for auth-service responses.
type UserView struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	AvatarID    *string `json:"avatar_id,omitempty"`
	HasPassword bool    `json:"has_password"`
}

func NewUserView(u domain.User) UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		AvatarID:    u.AvatarID,
		HasPassword: u.PasswordHash != "",
	}
}

// TokensView is the standard access token payload.
// (Refresh token is stored in HttpOnly cookie, so we never return it in JSON.)
type TokensView struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // "Bearer"
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// AuthData is returned by register/login.
type AuthData struct {
	User   UserView   `json:"user"`
	Tokens TokensView `json:"tokens"`
}

// ProviderAuthData is returned by provider login. Outcome says how the
// identity was resolved: created, attached, or reused.
type ProviderAuthData struct {
	User    UserView   `json:"user"`
	Tokens  TokensView `json:"tokens"`
	Outcome string     `json:"outcome"`
}

// RefreshData is returned by refresh.
type RefreshData struct {
	Tokens TokensView `json:"tokens"`
}

// MeData is returned by /me.
type MeData struct {
	User UserView `json:"user"`
}

// -------- Availability checks --------

type ExistsData struct {
	Exists bool `json:"exists"`
}

// -------- Password reset --------

type StatusData struct {
	Status string `json:"status"` // "ok"
}

// -------- Linking --------

// LinkedStatusData maps each supported provider to whether the account is
// linked to it.
type LinkedStatusData struct {
	Linked map[string]bool `json:"linked"`
}

func NewLinkedStatusData(status map[domain.Provider]bool) LinkedStatusData {
	out := make(map[string]bool, len(status))
	for p, linked := range status {
		out[string(p)] = linked
	}
	return LinkedStatusData{Linked: out}
}
