package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/omnisphere/auth-service/internal/domain"
)

// Register creates a password-based account. The username defaults to the
// email address; the register form has no separate username field.
func (s *Service) Register(ctx context.Context, email, password string) (RegisterResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return RegisterResult{}, domain.ErrMissingField("email")
	}
	if password == "" {
		return RegisterResult{}, domain.ErrMissingField("password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return RegisterResult{}, domain.ErrHashFailed(err)
	}

	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     email,
		PasswordHash: hash,
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		if domain.Is(err, "unique_violation") {
			return RegisterResult{}, domain.ErrEmailAlreadyExists()
		}
		return RegisterResult{}, err
	}

	toks, err := s.issueTokens(ctx, created.ID)
	if err != nil {
		return RegisterResult{}, err
	}

	s.audit("register", map[string]string{"user_id": created.ID})
	return RegisterResult{User: created, Tokens: toks}, nil
}
