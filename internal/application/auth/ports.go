package auth

import (
	"context"
	"time"

	"github.com/omnisphere/auth-service/internal/domain"
)

/*
UserRepo
--------
Persistence port for accounts.
Only describes WHAT the auth service needs, not HOW it's stored.

Uniqueness contract: Create and SetProviderID return a domain error with
code "unique_violation" on a duplicate email, username, or
(provider, external id) pair. The resolver relies on this to detect
read-decide-write races.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)

	// FindByProviderID looks up the account holding externalID for the
	// provider. Returns user_not_found when no account holds it.
	FindByProviderID(ctx context.Context, p domain.Provider, externalID string) (domain.User, error)

	Create(ctx context.Context, u domain.User) (domain.User, error)

	// SetProviderID sets the provider slot for the account; nil clears it.
	SetProviderID(ctx context.Context, userID string, p domain.Provider, externalID *string) error

	// CountUsernamePrefix counts accounts whose username starts with prefix.
	// Used for username disambiguation on account creation.
	CountUsernamePrefix(ctx context.Context, prefix string) (int, error)

	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
	SetAvatarID(ctx context.Context, userID string, avatarID *string) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt / argon2.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenSigner
-----------
Issues and verifies access tokens (JWT).
Used by service + auth middleware.
*/
type TokenClaims struct {
	UserID string
	Exp    time.Time
}

type TokenSigner interface {
	SignAccessToken(userID string, ttl time.Duration) (string, error)
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
SessionStore
------------
Refresh token management, backed by Redis.
*/
type SessionStore interface {
	CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (token string, err error)
	RotateRefreshToken(ctx context.Context, oldToken string, ttl time.Duration) (newToken string, err error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, userID string) error
	GetUserIDByRefreshToken(ctx context.Context, token string) (string, error)
}

/*
ResetCodeStore
--------------
Short numeric confirmation codes for password reset, stored with a TTL and
consumed on successful reset.
*/
type ResetCodeStore interface {
	Save(ctx context.Context, userID string, code string, ttl time.Duration) error
	// Peek returns the stored code without consuming it.
	Peek(ctx context.Context, userID string) (code string, err error)
	Delete(ctx context.Context, userID string) error
}

/*
AvatarStore
-----------
Best-effort persistence of provider profile pictures. Download failures are
logged and ignored by the caller; they never abort identity resolution.
*/
type AvatarStore interface {
	// Download fetches url and stores the bytes for the user, returning the
	// stored avatar id.
	Download(ctx context.Context, userID, url string) (avatarID string, err error)
	// Remove deletes a stored avatar that is no longer referenced.
	Remove(avatarID string) error
}

/*
EventPublisher
--------------
Publishes events to RabbitMQ. The email-service consumes these and sends
emails; the auth-service does NOT send emails directly.
*/
type EventPublisher interface {
	PublishConfirmationCode(ctx context.Context, evt ConfirmationCodeEvent) error
	PublishAvatarCleanup(ctx context.Context, evt AvatarCleanupEvent) error
}

// ConfirmationCodeEvent asks the email-service to deliver a reset code.
type ConfirmationCodeEvent struct {
	UserID string
	Email  string
	Code   string
}

// AvatarCleanupEvent signals that a stored avatar is no longer referenced.
type AvatarCleanupEvent struct {
	UserID   string
	AvatarID string
}
