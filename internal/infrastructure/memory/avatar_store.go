package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/omnisphere/auth-service/internal/domain"
)

// AvatarStore records avatar downloads without fetching anything.
type AvatarStore struct {
	mu     sync.Mutex
	byUser map[string]string // userID -> avatarID
	blobs  map[string]bool   // avatarID -> stored
}

func NewAvatarStore() *AvatarStore {
	return &AvatarStore{
		byUser: make(map[string]string),
		blobs:  make(map[string]bool),
	}
}

func (s *AvatarStore) Download(ctx context.Context, userID, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", domain.ErrMissingField("avatar_url")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.byUser[userID] = id
	s.blobs[id] = true
	return id, nil
}

// Remove forgets a stored avatar. Unknown ids are not an error, matching
// the file-backed store.
func (s *AvatarStore) Remove(avatarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, avatarID)
	return nil
}
