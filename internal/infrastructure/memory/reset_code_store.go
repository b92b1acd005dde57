package memory

import (
	"context"
	"sync"
	"time"

	"github.com/omnisphere/auth-service/internal/domain"
)

// maxCodeReads matches the redis store: a code burns after too many reads.
const maxCodeReads = 5

type codeEntry struct {
	code      string
	expiresAt time.Time
	reads     int
}

type ResetCodeStore struct {
	mu sync.RWMutex
	// userID -> codeEntry
	data map[string]codeEntry
}

func NewResetCodeStore() *ResetCodeStore {
	return &ResetCodeStore{data: make(map[string]codeEntry)}
}

func (s *ResetCodeStore) Save(ctx context.Context, userID string, code string, ttl time.Duration) error {
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if code == "" {
		return domain.ErrMissingField("code")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = codeEntry{code: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *ResetCodeStore) Peek(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[userID]
	if !ok {
		return "", domain.ErrResetCodeNotFound()
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.data, userID)
		return "", domain.ErrResetCodeNotFound()
	}

	entry.reads++
	if entry.reads > maxCodeReads {
		delete(s.data, userID)
		return "", domain.ErrResetCodeNotFound()
	}
	s.data[userID] = entry
	return entry.code, nil
}

func (s *ResetCodeStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}
