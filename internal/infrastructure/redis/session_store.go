package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/omnisphere/auth-service/internal/domain"
)

// SessionStore keeps refresh sessions in Redis.
//
// Tokens are opaque random strings. Each token key holds "<userID>:<gen>"
// where gen is the user's session generation; RevokeAll bumps the
// generation counter, which invalidates every outstanding token at once
// without having to enumerate them.
//
// Keys:
//
//	session:<token>  -> "<userID>:<gen>"  (TTL = refresh lifetime)
//	sessgen:<userID> -> <gen>             (no TTL)
type SessionStore struct {
	rdb *goredis.Client
}

const (
	sessionKeyPrefix = "session:"
	sessGenKeyPrefix = "sessgen:"

	sessionTokenBytes = 32
)

func NewSessionStore(c *Client) *SessionStore {
	s := &SessionStore{}
	if c != nil {
		s.rdb = c.rdb
	}
	return s
}

func (s *SessionStore) CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return "", errors.New("redis session store not configured")
	}

	gen, err := s.currentGen(ctx, userID)
	if err != nil {
		return "", err
	}

	token, err := randomToken()
	if err != nil {
		return "", err
	}

	record := userID + ":" + strconv.FormatInt(gen, 10)
	if err := s.rdb.Set(ctx, sessionKeyPrefix+token, record, ttl).Err(); err != nil {
		return "", domain.ErrRedisUnavailable(err)
	}
	return token, nil
}

// rotateScript moves a session record from the old token key to the new one
// in a single atomic step, so a replayed old token cannot race the rotation.
const rotateScript = `
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], v, "PX", ARGV[1])
return v
`

func (s *SessionStore) RotateRefreshToken(ctx context.Context, oldToken string, ttl time.Duration) (string, error) {
	oldToken = strings.TrimSpace(oldToken)
	if oldToken == "" {
		return "", domain.ErrRefreshTokenInvalid()
	}
	if s.rdb == nil {
		return "", errors.New("redis session store not configured")
	}

	newToken, err := randomToken()
	if err != nil {
		return "", err
	}

	ttlMillis := ttl.Milliseconds()
	if ttlMillis <= 0 {
		ttlMillis = (7 * 24 * time.Hour).Milliseconds()
	}

	keys := []string{sessionKeyPrefix + oldToken, sessionKeyPrefix + newToken}
	res, err := s.rdb.Eval(ctx, rotateScript, keys, ttlMillis).Result()
	if err != nil {
		return "", domain.ErrRedisUnavailable(err)
	}
	if res == nil {
		return "", domain.ErrRefreshTokenInvalid()
	}

	record, _ := res.(string)
	userID, tokenGen, ok := splitRecord(record)
	if !ok {
		return "", domain.ErrRefreshTokenInvalid()
	}

	// RevokeAll may have bumped the generation between GET and here; the
	// freshly minted token inherits the stale generation and must die with it.
	gen, err := s.currentGen(ctx, userID)
	if err != nil {
		return "", err
	}
	if tokenGen != gen {
		_ = s.rdb.Del(ctx, sessionKeyPrefix+newToken).Err()
		return "", domain.ErrRefreshTokenInvalid()
	}

	return newToken, nil
}

func (s *SessionStore) GetUserIDByRefreshToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrRefreshTokenInvalid()
	}
	if s.rdb == nil {
		return "", errors.New("redis session store not configured")
	}

	record, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrRefreshTokenInvalid()
		}
		return "", domain.ErrRedisUnavailable(err)
	}

	userID, tokenGen, ok := splitRecord(record)
	if !ok {
		return "", domain.ErrRefreshTokenInvalid()
	}

	gen, err := s.currentGen(ctx, userID)
	if err != nil {
		return "", err
	}
	if tokenGen != gen {
		return "", domain.ErrRefreshTokenInvalid()
	}
	return userID, nil
}

func (s *SessionStore) RevokeRefreshToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if s.rdb == nil {
		return errors.New("redis session store not configured")
	}
	_ = s.rdb.Del(ctx, sessionKeyPrefix+token).Err()
	return nil
}

func (s *SessionStore) RevokeAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return errors.New("redis session store not configured")
	}
	if err := s.rdb.Incr(ctx, sessGenKeyPrefix+userID).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *SessionStore) currentGen(ctx context.Context, userID string) (int64, error) {
	key := sessGenKeyPrefix + userID

	v, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		if n, perr := strconv.ParseInt(strings.TrimSpace(v), 10, 64); perr == nil {
			return n, nil
		}
		// unparseable counter: fall through and re-seed it at 0
	} else if !errors.Is(err, goredis.Nil) {
		return 0, domain.ErrRedisUnavailable(err)
	}

	_ = s.rdb.SetNX(ctx, key, "0", 0).Err()
	return 0, nil
}

func splitRecord(record string) (userID string, gen int64, ok bool) {
	i := strings.LastIndexByte(record, ':')
	if i <= 0 {
		return "", 0, false
	}
	userID = strings.TrimSpace(record[:i])
	if userID == "" {
		return "", 0, false
	}
	gen, err := strconv.ParseInt(strings.TrimSpace(record[i+1:]), 10, 64)
	if err != nil {
		return "", 0, false
	}
	return userID, gen, true
}

func randomToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
