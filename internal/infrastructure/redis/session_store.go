package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/taskflow/internal/domain"
)

var errNotConfigured = errors.New("redis session store not configured")

// SessionStore keeps opaque refresh tokens with per-user versioning:
//   - rt:<token>   -> "<uid>:<ver>" with the refresh TTL
//   - rtver:<uid>  -> current version, no TTL
//
// RevokeAll bumps rtver:<uid>; a token is valid only while its version
// matches the current one.
type SessionStore struct {
	rdb *goredis.Client

	rtPrefix    string
	rtverPrefix string
	tokenBytes  int
}

func NewSessionStore(c *Client) *SessionStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &SessionStore{
		rdb:         rdb,
		rtPrefix:    "rt:",
		rtverPrefix: "rtver:",
		tokenBytes:  32,
	}
}

func (s *SessionStore) CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return "", domain.ErrCacheUnavailable(errNotConfigured)
	}

	ver, err := s.userVersion(ctx, userID)
	if err != nil {
		return "", err
	}

	token, err := s.newOpaqueToken()
	if err != nil {
		return "", domain.ErrInternal(err)
	}

	val := fmt.Sprintf("%s:%d", userID, ver)
	if err := s.rdb.Set(ctx, s.rtPrefix+token, val, ttl).Err(); err != nil {
		return "", domain.ErrCacheUnavailable(err)
	}
	return token, nil
}

func (s *SessionStore) GetUserIDByRefreshToken(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrRefreshTokenInvalid()
	}
	if s.rdb == nil {
		return "", domain.ErrCacheUnavailable(errNotConfigured)
	}

	val, err := s.rdb.Get(ctx, s.rtPrefix+token).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrRefreshTokenInvalid()
		}
		return "", domain.ErrCacheUnavailable(err)
	}

	uid, tokVer, err := parseUIDVer(val)
	if err != nil {
		return "", domain.ErrRefreshTokenInvalid()
	}

	curVer, err := s.userVersion(ctx, uid)
	if err != nil {
		return "", err
	}
	if tokVer != curVer {
		return "", domain.ErrRefreshTokenInvalid()
	}
	return uid, nil
}

func (s *SessionStore) RevokeAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrMissingField("user_id")
	}
	if s.rdb == nil {
		return domain.ErrCacheUnavailable(errNotConfigured)
	}
	if err := s.rdb.Incr(ctx, s.rtverPrefix+userID).Err(); err != nil {
		return domain.ErrCacheUnavailable(err)
	}
	return nil
}

func (s *SessionStore) userVersion(ctx context.Context, userID string) (int64, error) {
	key := s.rtverPrefix + userID

	v, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		n, perr := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if perr == nil {
			return n, nil
		}
	} else if !errors.Is(err, goredis.Nil) {
		return 0, domain.ErrCacheUnavailable(err)
	}

	// SETNX keeps a concurrent RevokeAll from being overwritten
	_ = s.rdb.SetNX(ctx, key, "0", 0).Err()
	return 0, nil
}

func parseUIDVer(s string) (uid string, ver int64, err error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return "", 0, fmt.Errorf("bad token value")
	}
	uid = strings.TrimSpace(s[:i])
	if uid == "" {
		return "", 0, fmt.Errorf("empty uid")
	}
	ver, err = strconv.ParseInt(strings.TrimSpace(s[i+1:]), 10, 64)
	if err != nil {
		return "", 0, err
	}
	return uid, ver, nil
}

func (s *SessionStore) newOpaqueToken() (string, error) {
	b := make([]byte, s.tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
