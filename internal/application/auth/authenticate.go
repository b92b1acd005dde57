package auth

import (
	"context"

	"github.com/omnisphere/auth-service/internal/domain"
)

// AuthenticateProvider runs the login path for an external identity: resolve
// against the account store, then issue session credentials.
func (s *Service) AuthenticateProvider(ctx context.Context, id domain.ExternalIdentity) (LoginResult, domain.LinkKind, error) {
	out, err := s.ResolveIdentity(ctx, id)
	if err != nil {
		return LoginResult{}, "", err
	}

	toks, err := s.issueTokens(ctx, out.User.ID)
	if err != nil {
		return LoginResult{}, "", err
	}

	return LoginResult{User: out.User, Tokens: toks}, out.Kind, nil
}
