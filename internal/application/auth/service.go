package auth

import (
	"context"
	"time"

	"github.com/omnisphere/auth-service/internal/domain"
)

type Service struct {
	users    UserRepo
	hasher   PasswordHasher
	signer   TokenSigner
	sessions SessionStore
	codes    ResetCodeStore
	avatars  AvatarStore
	pub      EventPublisher

	accessTTL    time.Duration
	refreshTTL   time.Duration
	resetCodeTTL time.Duration

	audit func(action string, fields map[string]string)
}

type Config struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ResetCodeTTL time.Duration
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	signer TokenSigner,
	sessions SessionStore,
	codes ResetCodeStore,
	avatars AvatarStore,
	pub EventPublisher,
	cfg Config,
) *Service {
	resetTTL := cfg.ResetCodeTTL
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		signer:   signer,
		sessions: sessions,
		codes:    codes,
		avatars:  avatars,
		pub:      pub,
		audit:    func(string, map[string]string) {},

		accessTTL:    cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
		resetCodeTTL: resetTTL,
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// AuthTokens is the common token output for handlers/DTO mapping.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64  // seconds
	TokenType    string // "Bearer"
}

type RegisterResult struct {
	User   domain.User
	Tokens AuthTokens
}

type LoginResult struct {
	User   domain.User
	Tokens AuthTokens
}

// issueTokens issues an access token + refresh token for a user.
func (s *Service) issueTokens(ctx context.Context, userID string) (AuthTokens, error) {
	access, err := s.signer.SignAccessToken(userID, s.accessTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	refresh, err := s.sessions.CreateRefreshToken(ctx, userID, s.refreshTTL)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}
