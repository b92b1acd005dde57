package auth

import (
	"context"

	"github.com/omnisphere/auth-service/internal/domain"
)

// Refresh rotates the refresh token and mints a fresh access token. A
// successfully used refresh token is dead afterwards; replaying it fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthTokens, error) {
	if refreshToken == "" {
		return AuthTokens{}, domain.ErrRefreshTokenInvalid()
	}

	userID, err := s.sessions.GetUserIDByRefreshToken(ctx, refreshToken)
	if err != nil {
		return AuthTokens{}, domain.ErrRefreshTokenInvalid()
	}

	// A deleted account invalidates its sessions.
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return AuthTokens{}, domain.ErrRefreshTokenInvalid()
	}

	rotated, err := s.sessions.RotateRefreshToken(ctx, refreshToken, s.refreshTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrRefreshTokenInvalid()
	}

	access, err := s.signer.SignAccessToken(u.ID, s.accessTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: rotated,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// Logout revokes a single session. A missing token is a no-op so the
// endpoint stays idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshToken(ctx, refreshToken)
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.users.GetByID(ctx, userID)
}
