package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/omnisphere/auth-service/internal/domain"
)

// PasswordResetRequest stores a 6-digit confirmation code and publishes an
// email event carrying it. The email-service delivers the actual mail.
func (s *Service) PasswordResetRequest(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := newConfirmationCode()
	if err != nil {
		return domain.ErrRandomFailed(err)
	}

	if err := s.codes.Save(ctx, u.ID, code, s.resetCodeTTL); err != nil {
		return err
	}

	return s.pub.PublishConfirmationCode(ctx, ConfirmationCodeEvent{
		UserID: u.ID,
		Email:  u.Email,
		Code:   code,
	})
}

// PasswordResetConfirm verifies the confirmation code, sets the new
// password, consumes the code, and issues fresh tokens.
func (s *Service) PasswordResetConfirm(ctx context.Context, email, code, newPassword string) (LoginResult, error) {
	if code == "" {
		return LoginResult{}, domain.ErrMissingField("code")
	}
	if newPassword == "" {
		return LoginResult{}, domain.ErrMissingField("password")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}

	stored, err := s.codes.Peek(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	if stored != code {
		return LoginResult{}, domain.ErrInvalidField("code", "mismatch")
	}

	// Reusing the old password defeats the point of the reset.
	if u.PasswordHash != "" && s.hasher.Compare(u.PasswordHash, newPassword) == nil {
		return LoginResult{}, domain.ErrInvalidField("password", "same as current password")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return LoginResult{}, domain.ErrHashFailed(err)
	}

	if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return LoginResult{}, err
	}
	u.PasswordHash = hash

	_ = s.codes.Delete(ctx, u.ID)

	// All previous sessions are suspect after a reset.
	_ = s.sessions.RevokeAll(ctx, u.ID)

	toks, err := s.issueTokens(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}

	s.audit("password_reset", map[string]string{"user_id": u.ID})
	return LoginResult{User: u, Tokens: toks}, nil
}

// newConfirmationCode returns a random 6-digit numeric code.
func newConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
