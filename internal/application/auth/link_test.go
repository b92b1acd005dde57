package auth

import (
	"context"
	"testing"

	"github.com/omnisphere/auth-service/internal/domain"
)

func TestLinkAccount(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		setup       func(users *fakeUserRepo) (userID string)
		identity    domain.ExternalIdentity
		wantErrCode string
		wantSlot    string
	}{
		{
			name: "links free identity",
			setup: func(users *fakeUserRepo) string {
				return users.add(domain.User{Email: "a@example.com", Username: "a"}).ID
			},
			identity: domain.ExternalIdentity{Provider: domain.ProviderGoogle, ExternalID: "g-1"},
			wantSlot: "g-1",
		},
		{
			name: "relinking own identity is a no-op",
			setup: func(users *fakeUserRepo) string {
				return users.add(domain.User{Email: "a@example.com", Username: "a", GoogleID: strptr("g-1")}).ID
			},
			identity: domain.ExternalIdentity{Provider: domain.ProviderGoogle, ExternalID: "g-1"},
			wantSlot: "g-1",
		},
		{
			name: "conflict when another account holds the identity",
			setup: func(users *fakeUserRepo) string {
				users.add(domain.User{Email: "other@example.com", Username: "other", GoogleID: strptr("g-1")})
				return users.add(domain.User{Email: "a@example.com", Username: "a"}).ID
			},
			identity:    domain.ExternalIdentity{Provider: domain.ProviderGoogle, ExternalID: "g-1"},
			wantErrCode: "identity_conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, _, _, _, _, _ := newSvcForTest(t)
			userID := tt.setup(users)

			err := svc.LinkAccount(ctx, userID, tt.identity)

			if tt.wantErrCode != "" {
				requireErrCode(t, err, tt.wantErrCode)
				// The caller's record must be untouched on conflict.
				u := users.get(userID)
				if got := u.ProviderID(tt.identity.Provider); got != nil {
					t.Errorf("caller slot = %v, want nil", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			u := users.get(userID)
			got := u.ProviderID(tt.identity.Provider)
			if got == nil || *got != tt.wantSlot {
				t.Errorf("slot = %v, want %q", got, tt.wantSlot)
			}
		})
	}
}

func TestLinkAccount_ConflictLeavesBothRecordsUnchanged(t *testing.T) {
	svc, users, _, _, _, _, _ := newSvcForTest(t)
	ctx := context.Background()

	holder := users.add(domain.User{Email: "h@example.com", Username: "h", GitHubID: strptr("gh-1")})
	caller := users.add(domain.User{Email: "c@example.com", Username: "c"})

	err := svc.LinkAccount(ctx, caller.ID, domain.ExternalIdentity{Provider: domain.ProviderGitHub, ExternalID: "gh-1"})
	requireErrCode(t, err, "identity_conflict")

	holderRec := users.get(holder.ID)
	if got := holderRec.ProviderID(domain.ProviderGitHub); got == nil || *got != "gh-1" {
		t.Errorf("holder slot = %v, want gh-1", got)
	}
	callerRec := users.get(caller.ID)
	if got := callerRec.ProviderID(domain.ProviderGitHub); got != nil {
		t.Errorf("caller slot = %v, want nil", got)
	}
}

func TestLinkAccount_WriteRaceMapsToConflict(t *testing.T) {
	svc, users, _, _, _, _, _ := newSvcForTest(t)
	ctx := context.Background()

	caller := users.add(domain.User{Email: "c@example.com", Username: "c"})
	users.setProviderID = domain.ErrUniqueViolation("users_github_id_key", nil)

	err := svc.LinkAccount(ctx, caller.ID, domain.ExternalIdentity{Provider: domain.ProviderGitHub, ExternalID: "gh-1"})
	requireErrCode(t, err, "identity_conflict")
}

func TestLinkAccount_ReplacedAvatarIsCleanedUp(t *testing.T) {
	svc, users, _, _, avatars, pub, _ := newSvcForTest(t)
	ctx := context.Background()

	u := users.add(domain.User{Email: "a@example.com", Username: "a", AvatarID: strptr("old-av")})

	id := domain.ExternalIdentity{
		Provider:   domain.ProviderGoogle,
		ExternalID: "g-1",
		AvatarURL:  "https://cdn.example.com/g.png",
	}
	if err := svc.LinkAccount(ctx, u.ID, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := users.get(u.ID)
	if got.AvatarID == nil || *got.AvatarID == "old-av" {
		t.Fatalf("avatar = %v, want a fresh id", got.AvatarID)
	}
	if len(avatars.removed) != 1 || avatars.removed[0] != "old-av" {
		t.Errorf("removed = %v, want [old-av]", avatars.removed)
	}
	if len(pub.cleanups) != 1 {
		t.Fatalf("cleanup events = %d, want 1", len(pub.cleanups))
	}
	if evt := pub.cleanups[0]; evt.UserID != u.ID || evt.AvatarID != "old-av" {
		t.Errorf("cleanup event = %+v, want old-av for %s", evt, u.ID)
	}
}

func TestLinkAccount_FirstAvatarNeedsNoCleanup(t *testing.T) {
	svc, users, _, _, avatars, pub, _ := newSvcForTest(t)
	ctx := context.Background()

	u := users.add(domain.User{Email: "a@example.com", Username: "a"})

	id := domain.ExternalIdentity{
		Provider:   domain.ProviderGoogle,
		ExternalID: "g-1",
		AvatarURL:  "https://cdn.example.com/g.png",
	}
	if err := svc.LinkAccount(ctx, u.ID, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if users.get(u.ID).AvatarID == nil {
		t.Error("avatar not recorded on first link")
	}
	if len(avatars.removed) != 0 {
		t.Errorf("removed = %v, want none", avatars.removed)
	}
	if len(pub.cleanups) != 0 {
		t.Errorf("cleanup events = %v, want none", pub.cleanups)
	}
}

func TestUnlinkAccount(t *testing.T) {
	svc, users, _, _, _, _, _ := newSvcForTest(t)
	ctx := context.Background()

	u := users.add(domain.User{Email: "a@example.com", Username: "a", TelegramID: strptr("tg-1")})

	if err := svc.UnlinkAccount(ctx, u.ID, domain.ProviderTelegram); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := users.get(u.ID).TelegramID; got != nil {
		t.Errorf("slot = %v, want nil", got)
	}

	// Second unlink hits the not-linked guard and writes nothing.
	err := svc.UnlinkAccount(ctx, u.ID, domain.ProviderTelegram)
	requireErrCode(t, err, "not_linked")
}

func TestLinkedAccounts(t *testing.T) {
	svc, users, _, _, _, _, _ := newSvcForTest(t)
	ctx := context.Background()

	u := users.add(domain.User{Email: "a@example.com", Username: "a", GoogleID: strptr("g-1")})

	status, err := svc.LinkedAccounts(ctx, u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[domain.Provider]bool{
		domain.ProviderGoogle:   true,
		domain.ProviderGitHub:   false,
		domain.ProviderTelegram: false,
	}
	for p, w := range want {
		if status[p] != w {
			t.Errorf("status[%s] = %v, want %v", p, status[p], w)
		}
	}
}
