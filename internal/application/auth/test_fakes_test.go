package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/omnisphere/auth-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID map[string]domain.User
	seq  int

	// injected errors (if set, method returns error)
	getByEmailErr error
	createErr     error
	setProviderID error

	// beforeCreate runs once just before an insert, letting tests simulate
	// a racing writer that commits first.
	beforeCreate func(f *fakeUserRepo)
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) add(u domain.User) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		f.seq++
		u.ID = fmt.Sprintf("u%d", f.seq)
	}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUserRepo) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	for _, u := range f.byID {
		if u.Email != "" && u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) FindByProviderID(ctx context.Context, p domain.Provider, externalID string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byID {
		if id := u.ProviderID(p); id != nil && *id == externalID {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

// checkUnique enforces the store's uniqueness constraints. Caller holds the lock.
func (f *fakeUserRepo) checkUnique(u domain.User) error {
	for _, o := range f.byID {
		if o.ID == u.ID {
			continue
		}
		if u.Email != "" && o.Email == u.Email {
			return domain.ErrUniqueViolation("users_email_key", nil)
		}
		if o.Username == u.Username {
			return domain.ErrUniqueViolation("users_username_key", nil)
		}
		for _, p := range domain.Providers() {
			a, b := u.ProviderID(p), o.ProviderID(p)
			if a != nil && b != nil && *a == *b {
				return domain.ErrUniqueViolation("users_"+string(p)+"_id_key", nil)
			}
		}
	}
	return nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if hook := f.takeBeforeCreate(); hook != nil {
		hook(f)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if err := f.checkUnique(u); err != nil {
		return domain.User{}, err
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) takeBeforeCreate() func(*fakeUserRepo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hook := f.beforeCreate
	f.beforeCreate = nil
	return hook
}

func (f *fakeUserRepo) SetProviderID(ctx context.Context, userID string, p domain.Provider, externalID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setProviderID != nil {
		return f.setProviderID
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.SetProviderID(p, externalID)
	if externalID != nil {
		if err := f.checkUnique(u); err != nil {
			return err
		}
	}
	f.byID[userID] = u
	return nil
}

func (f *fakeUserRepo) CountUsernamePrefix(ctx context.Context, prefix string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, u := range f.byID {
		if strings.HasPrefix(u.Username, prefix) {
			n++
		}
	}
	return n, nil
}

func (f *fakeUserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = newHash
	f.byID[userID] = u
	return nil
}

func (f *fakeUserRepo) SetAvatarID(ctx context.Context, userID string, avatarID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.AvatarID = avatarID
	f.byID[userID] = u
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }
func (fakeHasher) Compare(hash, password string) error {
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

type fakeSigner struct {
	signErr error
}

func (f *fakeSigner) SignAccessToken(userID string, ttl time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "access:" + userID, nil
}

func (f *fakeSigner) VerifyAccessToken(token string) (TokenClaims, error) {
	uid, ok := strings.CutPrefix(token, "access:")
	if !ok {
		return TokenClaims{}, domain.ErrTokenInvalid()
	}
	return TokenClaims{UserID: uid, Exp: time.Now().Add(time.Minute)}, nil
}

type fakeSessions struct {
	mu      sync.Mutex
	byToken map[string]string
	seq     int

	createErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]string{}}
}

func (f *fakeSessions) CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.seq++
	tok := fmt.Sprintf("refresh%d", f.seq)
	f.byToken[tok] = userID
	return tok, nil
}

func (f *fakeSessions) RotateRefreshToken(ctx context.Context, oldToken string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.byToken[oldToken]
	if !ok {
		return "", domain.ErrRefreshTokenInvalid()
	}
	delete(f.byToken, oldToken)
	f.seq++
	tok := fmt.Sprintf("refresh%d", f.seq)
	f.byToken[tok] = uid
	return tok, nil
}

func (f *fakeSessions) RevokeRefreshToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessions) RevokeAll(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for tok, uid := range f.byToken {
		if uid == userID {
			delete(f.byToken, tok)
		}
	}
	return nil
}

func (f *fakeSessions) GetUserIDByRefreshToken(ctx context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.byToken[token]
	if !ok {
		return "", domain.ErrRefreshTokenInvalid()
	}
	return uid, nil
}

type fakeCodes struct {
	mu     sync.Mutex
	byUser map[string]string

	saveErr error
}

func newFakeCodes() *fakeCodes { return &fakeCodes{byUser: map[string]string{}} }

func (f *fakeCodes) Save(ctx context.Context, userID, code string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.byUser[userID] = code
	return nil
}

func (f *fakeCodes) Peek(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.byUser[userID]
	if !ok {
		return "", domain.ErrResetCodeNotFound()
	}
	return code, nil
}

func (f *fakeCodes) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byUser, userID)
	return nil
}

type fakeAvatars struct {
	mu        sync.Mutex
	downloads []string // urls
	removed   []string // avatar ids
	err       error
	removeErr error
}

func (f *fakeAvatars) Download(ctx context.Context, userID, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, url)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("avatar-%s-%d", userID, len(f.downloads)), nil
}

func (f *fakeAvatars) Remove(avatarID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, avatarID)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	codes    []ConfirmationCodeEvent
	cleanups []AvatarCleanupEvent
	err      error
}

func (f *fakePublisher) PublishConfirmationCode(ctx context.Context, evt ConfirmationCodeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, evt)
	return f.err
}

func (f *fakePublisher) PublishAvatarCleanup(ctx context.Context, evt AvatarCleanupEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cleanups = append(f.cleanups, evt)
	return nil
}

/*
Service under test
*/

func newSvcForTest(t *testing.T) (*Service, *fakeUserRepo, *fakeSessions, *fakeCodes, *fakeAvatars, *fakePublisher, *[]auditEntry) {
	t.Helper()

	users := newFakeUserRepo()
	sessions := newFakeSessions()
	codes := newFakeCodes()
	avatars := &fakeAvatars{}
	pub := &fakePublisher{}

	audits := &[]auditEntry{}

	svc := NewService(users, fakeHasher{}, &fakeSigner{}, sessions, codes, avatars, pub, Config{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}).WithAudit(func(action string, fields map[string]string) {
		*audits = append(*audits, auditEntry{action: action, fields: fields})
	})

	return svc, users, sessions, codes, avatars, pub, audits
}
