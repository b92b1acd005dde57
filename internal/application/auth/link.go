package auth

import (
	"context"

	"github.com/omnisphere/auth-service/internal/domain"
)

// LinkAccount attaches an external identity to an already authenticated
// account. The identity has been verified by a provider client before this
// is called; no network work happens here.
func (s *Service) LinkAccount(ctx context.Context, userID string, id domain.ExternalIdentity) error {
	if id.ExternalID == "" {
		return domain.ErrInvalidField("external_id", "empty")
	}

	other, err := s.users.FindByProviderID(ctx, id.Provider, id.ExternalID)
	switch {
	case err == nil:
		if other.ID != userID {
			return domain.ErrIdentityConflict(id.Provider)
		}
		// Re-linking the same identity to the same account is a no-op.
		return nil
	case !domain.Is(err, "user_not_found"):
		return err
	}

	ext := id.ExternalID
	if err := s.users.SetProviderID(ctx, userID, id.Provider, &ext); err != nil {
		// A concurrent link won the slot between lookup and write.
		if domain.Is(err, "unique_violation") {
			return domain.ErrIdentityConflict(id.Provider)
		}
		return err
	}

	// The freshly linked provider's picture becomes the account avatar;
	// fetchAvatar cleans up the one it replaces.
	if id.AvatarURL != "" {
		if u, err := s.users.GetByID(ctx, userID); err == nil {
			s.fetchAvatar(ctx, &u, id.AvatarURL)
		}
	}

	s.audit("account_linked", map[string]string{
		"user_id":  userID,
		"provider": string(id.Provider),
	})
	return nil
}

// UnlinkAccount removes the provider link from the account. Never calls
// external providers.
func (s *Service) UnlinkAccount(ctx context.Context, userID string, p domain.Provider) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !u.Linked(p) {
		return domain.ErrNotLinked(p)
	}

	if err := s.users.SetProviderID(ctx, userID, p, nil); err != nil {
		return err
	}

	s.audit("account_unlinked", map[string]string{
		"user_id":  userID,
		"provider": string(p),
	})
	return nil
}

// LinkedAccounts reports which providers the account is linked to. Computed
// from the stored record only.
func (s *Service) LinkedAccounts(ctx context.Context, userID string) (map[domain.Provider]bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := make(map[domain.Provider]bool, len(domain.Providers()))
	for _, p := range domain.Providers() {
		status[p] = u.Linked(p)
	}
	return status, nil
}
