package auth

import (
	"context"

	"github.com/omnisphere/auth-service/internal/domain"
)

// EmailExists reports whether an account holds the email. Used by the
// registration form's availability check.
func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UsernameExists reports whether an account holds the username.
func (s *Service) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
