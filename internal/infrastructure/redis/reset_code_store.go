package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/omnisphere/auth-service/internal/domain"
)

// maxCodeReads caps how often a stored code may be read before it burns.
// Six digits are guessable without a bound on attempts.
const maxCodeReads = 5

// ResetCodeStore keeps password reset confirmation codes keyed by user id.
// Codes expire on their own; a successful reset deletes the key explicitly,
// and too many reads burns the code early.
type ResetCodeStore struct {
	rdb    *goredis.Client
	prefix string
	reads  string
}

func NewResetCodeStore(c *Client) *ResetCodeStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &ResetCodeStore{
		rdb:    rdb,
		prefix: "resetcode:",
		reads:  "resetcode-reads:",
	}
}

func (s *ResetCodeStore) Save(ctx context.Context, userID string, code string, ttl time.Duration) error {
	userID = strings.TrimSpace(userID)
	code = strings.TrimSpace(code)
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if code == "" {
		return domain.ErrMissingField("code")
	}
	if ttl <= 0 {
		return domain.ErrMissingField("ttl")
	}
	if s.rdb == nil {
		return errors.New("redis reset code store not configured")
	}

	// overwrite is fine (a new request replaces the previous code)
	if err := s.rdb.Set(ctx, s.prefix+userID, code, ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	// the read counter starts over with the new code
	if err := s.rdb.Set(ctx, s.reads+userID, "0", ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *ResetCodeStore) Peek(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return "", errors.New("redis reset code store not configured")
	}

	code, err := s.rdb.Get(ctx, s.prefix+userID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrResetCodeNotFound()
		}
		return "", domain.ErrRedisUnavailable(err)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return "", domain.ErrResetCodeNotFound()
	}

	reads, err := s.rdb.Incr(ctx, s.reads+userID).Result()
	if err != nil {
		return "", domain.ErrRedisUnavailable(err)
	}
	if reads > maxCodeReads {
		_ = s.rdb.Del(ctx, s.prefix+userID, s.reads+userID).Err()
		return "", domain.ErrResetCodeNotFound()
	}
	return code, nil
}

func (s *ResetCodeStore) Delete(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return errors.New("redis reset code store not configured")
	}
	if err := s.rdb.Del(ctx, s.prefix+userID, s.reads+userID).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}
