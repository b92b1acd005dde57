package auth

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/omnisphere/auth-service/internal/domain"
)

// ResolveIdentity decides what a provider identity assertion means for the
// local account store: reuse an already-linked account, attach the identity
// to an account matched by email, create a new account, or reject as a
// conflict.
//
// The read-decide-write sequence can race with a concurrent resolution for
// the same identity; the store reports that as a unique_violation and the
// sequence is retried exactly once so the loser converges on the winner's
// account.
func (s *Service) ResolveIdentity(ctx context.Context, id domain.ExternalIdentity) (domain.LinkOutcome, error) {
	if id.ExternalID == "" {
		return domain.LinkOutcome{}, domain.ErrInvalidField("external_id", "empty")
	}

	out, err := s.resolveOnce(ctx, id)
	if err != nil && domain.Is(err, "unique_violation") {
		out, err = s.resolveOnce(ctx, id)
		if err != nil && domain.Is(err, "unique_violation") {
			err = domain.ErrIdentityConflict(id.Provider)
		}
	}
	if err != nil {
		return domain.LinkOutcome{}, err
	}

	if out.Kind == domain.LinkCreated {
		s.fetchAvatar(ctx, &out.User, id.AvatarURL)
		s.audit("provider_register", map[string]string{
			"user_id":  out.User.ID,
			"provider": string(id.Provider),
		})
	} else {
		s.audit("provider_login", map[string]string{
			"user_id":  out.User.ID,
			"provider": string(id.Provider),
			"outcome":  string(out.Kind),
		})
	}
	return out, nil
}

// resolveOnce runs one pass of the resolution algorithm.
func (s *Service) resolveOnce(ctx context.Context, id domain.ExternalIdentity) (domain.LinkOutcome, error) {
	// 1) Match by email, when the provider supplied one.
	if id.Email != "" {
		u, err := s.users.GetByEmail(ctx, id.Email)
		switch {
		case err == nil:
			cur := u.ProviderID(id.Provider)
			if cur != nil {
				// Exact string match, case-sensitive.
				if *cur == id.ExternalID {
					return domain.LinkOutcome{Kind: domain.LinkReused, User: u}, nil
				}
				return domain.LinkOutcome{}, domain.ErrIdentityConflict(id.Provider)
			}

			ext := id.ExternalID
			if err := s.users.SetProviderID(ctx, u.ID, id.Provider, &ext); err != nil {
				return domain.LinkOutcome{}, err
			}
			u.SetProviderID(id.Provider, &ext)
			return domain.LinkOutcome{Kind: domain.LinkAttached, User: u}, nil

		case !domain.Is(err, "user_not_found"):
			return domain.LinkOutcome{}, err
		}
	}

	// 2) No email match; an earlier login may already have linked this
	// external id (the only lookup path for email-less providers).
	u, err := s.users.FindByProviderID(ctx, id.Provider, id.ExternalID)
	switch {
	case err == nil:
		return domain.LinkOutcome{Kind: domain.LinkReused, User: u}, nil
	case !domain.Is(err, "user_not_found"):
		return domain.LinkOutcome{}, err
	}

	// 3) First sight of this identity: create an account.
	username, err := s.uniqueUsername(ctx, usernameHint(id))
	if err != nil {
		return domain.LinkOutcome{}, err
	}

	ext := id.ExternalID
	nu := domain.User{
		ID:       uuid.NewString(),
		Email:    id.Email,
		Username: username,
	}
	nu.SetProviderID(id.Provider, &ext)

	created, err := s.users.Create(ctx, nu)
	if err != nil {
		return domain.LinkOutcome{}, err
	}
	return domain.LinkOutcome{Kind: domain.LinkCreated, User: created}, nil
}

// uniqueUsername returns hint unchanged when no account holds it, otherwise
// hint with the count of accounts whose username starts with hint appended.
func (s *Service) uniqueUsername(ctx context.Context, hint string) (string, error) {
	_, err := s.users.GetByUsername(ctx, hint)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return hint, nil
		}
		return "", err
	}

	n, err := s.users.CountUsernamePrefix(ctx, hint)
	if err != nil {
		return "", err
	}
	return hint + strconv.Itoa(n), nil
}

// usernameHint picks the base username for a new account. Providers do not
// always supply a login name (telegram usernames are optional).
func usernameHint(id domain.ExternalIdentity) string {
	if id.UsernameHint != "" {
		return id.UsernameHint
	}
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return string(id.Provider) + id.ExternalID
}

// fetchAvatar downloads and stores the provider profile picture. Best
// effort: failures are recorded and never abort the caller. When the
// account already had an avatar, the replaced file is removed and an
// avatar cleanup event is published for downstream consumers.
func (s *Service) fetchAvatar(ctx context.Context, u *domain.User, url string) {
	if url == "" || s.avatars == nil {
		return
	}

	avatarID, err := s.avatars.Download(ctx, u.ID, url)
	if err != nil {
		s.audit("avatar_fetch_failed", map[string]string{
			"user_id": u.ID,
			"error":   err.Error(),
		})
		return
	}

	old := u.AvatarID
	if err := s.users.SetAvatarID(ctx, u.ID, &avatarID); err != nil {
		s.audit("avatar_save_failed", map[string]string{
			"user_id": u.ID,
			"error":   err.Error(),
		})
		// The freshly stored file is orphaned; best effort to drop it.
		_ = s.avatars.Remove(avatarID)
		return
	}
	u.AvatarID = &avatarID

	if old != nil && *old != avatarID {
		s.cleanupAvatar(ctx, u.ID, *old)
	}
}

// cleanupAvatar drops a no-longer-referenced avatar locally and tells the
// rest of the system about it. Failures are audit entries only.
func (s *Service) cleanupAvatar(ctx context.Context, userID, avatarID string) {
	if err := s.avatars.Remove(avatarID); err != nil {
		s.audit("avatar_remove_failed", map[string]string{
			"user_id":   userID,
			"avatar_id": avatarID,
			"error":     err.Error(),
		})
	}
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishAvatarCleanup(ctx, AvatarCleanupEvent{
		UserID:   userID,
		AvatarID: avatarID,
	}); err != nil {
		s.audit("avatar_cleanup_publish_failed", map[string]string{
			"user_id":   userID,
			"avatar_id": avatarID,
			"error":     err.Error(),
		})
	}
}
