package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/omnisphere/auth-service/internal/domain"
)

// UserRepo is the dev fallback when Postgres is not configured. It enforces
// the same uniqueness rules the database does, including the provider id
// slots, so the resolver behaves identically against it.
type UserRepo struct {
	mu   sync.RWMutex
	byID map[string]domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID: make(map[string]domain.User),
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (r *UserRepo) FindByProviderID(ctx context.Context, p domain.Provider, externalID string) (domain.User, error) {
	if externalID == "" {
		return domain.User{}, domain.ErrMissingField("external_id")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if id := u.ProviderID(p); id != nil && *id == externalID {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Username == "" {
		return domain.User{}, domain.ErrMissingField("username")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUniqueLocked(u); err != nil {
		return domain.User{}, err
	}

	r.byID[u.ID] = u
	return u, nil
}

func (r *UserRepo) SetProviderID(ctx context.Context, userID string, p domain.Provider, externalID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}

	if externalID != nil {
		for id, other := range r.byID {
			if id == userID {
				continue
			}
			if oid := other.ProviderID(p); oid != nil && *oid == *externalID {
				return domain.ErrUniqueViolation("users_"+string(p)+"_id_key", nil)
			}
		}
	}

	u.SetProviderID(p, externalID)
	r.byID[userID] = u
	return nil
}

func (r *UserRepo) CountUsernamePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, domain.ErrMissingField("prefix")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, u := range r.byID {
		if strings.HasPrefix(u.Username, prefix) {
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = newHash
	r.byID[userID] = u
	return nil
}

func (r *UserRepo) SetAvatarID(ctx context.Context, userID string, avatarID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.AvatarID = avatarID
	r.byID[userID] = u
	return nil
}

func (r *UserRepo) checkUniqueLocked(u domain.User) error {
	for _, other := range r.byID {
		if other.ID == u.ID {
			return domain.ErrUniqueViolation("users_pkey", nil)
		}
		if u.Email != "" && other.Email == u.Email {
			return domain.ErrUniqueViolation("users_email_key", nil)
		}
		if other.Username == u.Username {
			return domain.ErrUniqueViolation("users_username_key", nil)
		}
		for _, p := range domain.Providers() {
			id := u.ProviderID(p)
			oid := other.ProviderID(p)
			if id != nil && oid != nil && *id == *oid {
				return domain.ErrUniqueViolation("users_"+string(p)+"_id_key", nil)
			}
		}
	}
	return nil
}
