package auth

import (
	"context"
	"strings"

	"github.com/omnisphere/auth-service/internal/domain"
)

// Login authenticates the local email/password pair. Every failure mode
// collapses into invalid_credentials so callers cannot probe which emails
// are registered.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	// Provider-only accounts carry no password hash.
	if u.PasswordHash == "" {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	toks, err := s.issueTokens(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}

	s.audit("login", map[string]string{"user_id": u.ID})
	return LoginResult{User: u, Tokens: toks}, nil
}
