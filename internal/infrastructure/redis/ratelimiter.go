package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// FixedWindowLimiter is INCR key; PEXPIRE on the first hit. The key must
// already carry the identity, route and window bucket.
type FixedWindowLimiter struct {
	rdb *goredis.Client
	now func() time.Time
}

func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	l := &FixedWindowLimiter{now: time.Now}
	if c != nil {
		l.rdb = c.rdb
	}
	return l
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
	Count      int
}

const fixedWindowLua = `
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`

// AllowFixedWindow fails open when Redis is not configured or limit <= 0.
func (l *FixedWindowLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || l.rdb == nil {
		return Decision{Allowed: true, Limit: limit, Remaining: max(limit, 0)}, nil
	}
	if window < time.Millisecond {
		window = time.Minute
	}

	res, err := l.rdb.Eval(ctx, fixedWindowLua, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit redis eval: %w", err)
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return Decision{}, fmt.Errorf("ratelimit redis eval: unexpected result %T", res)
	}
	count, ok1 := arr[0].(int64)
	ttlms, ok2 := arr[1].(int64)
	if !ok1 || !ok2 {
		return Decision{}, fmt.Errorf("ratelimit redis eval: unexpected element types")
	}
	ttl := time.Duration(ttlms) * time.Millisecond

	d := Decision{
		Allowed:   int(count) <= limit,
		Limit:     limit,
		Remaining: max(0, limit-int(count)),
		Count:     int(count),
		ResetAt:   l.now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = window
		if ttl > 0 {
			d.RetryAfter = ttl
		}
	}
	return d, nil
}
