package memory

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/omnisphere/auth-service/internal/domain"
)

type session struct {
	userID  string
	expires time.Time
}

// SessionStore is a map-backed refresh session store for tests and
// standalone dev runs. Expired tokens are dropped lazily on lookup.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session         // token -> session
	byUser   map[string]map[string]bool // userID -> token set
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		byUser:   make(map[string]map[string]bool),
	}
}

func (s *SessionStore) CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token, err := mintToken()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = session{userID: userID, expires: time.Now().Add(ttl)}
	if s.byUser[userID] == nil {
		s.byUser[userID] = make(map[string]bool)
	}
	s.byUser[userID][token] = true
	return token, nil
}

func (s *SessionStore) GetUserIDByRefreshToken(ctx context.Context, token string) (string, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return "", domain.ErrRefreshTokenInvalid()
	}
	if time.Now().After(sess.expires) {
		_ = s.RevokeRefreshToken(ctx, token)
		return "", domain.ErrRefreshTokenInvalid()
	}
	return sess.userID, nil
}

func (s *SessionStore) RotateRefreshToken(ctx context.Context, oldToken string, ttl time.Duration) (string, error) {
	userID, err := s.GetUserIDByRefreshToken(ctx, oldToken)
	if err != nil {
		return "", err
	}
	_ = s.RevokeRefreshToken(ctx, oldToken)
	return s.CreateRefreshToken(ctx, userID, ttl)
}

func (s *SessionStore) RevokeRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	delete(s.sessions, token)
	if set := s.byUser[sess.userID]; set != nil {
		delete(set, token)
		if len(set) == 0 {
			delete(s.byUser, sess.userID)
		}
	}
	return nil
}

func (s *SessionStore) RevokeAll(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token := range s.byUser[userID] {
		delete(s.sessions, token)
	}
	delete(s.byUser, userID)
	return nil
}

func mintToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
