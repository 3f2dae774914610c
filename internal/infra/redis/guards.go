package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"socials-billing/internal/domain"
)

func CheckoutKey(accountID string) string { return "rate_limit:checkout:" + accountID }

func CallbackKey(remoteIP string) string { return "rate_limit:callback:" + remoteIP }

// INCR and PEXPIRE run together so a counter can never be left without a TTL.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

// RateLimiter counts hits per key in fixed windows that start at the first hit.
type RateLimiter struct {
	c *Client
}

func NewRateLimiter(c *Client) *RateLimiter { return &RateLimiter{c: c} }

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := incrWindow.Run(ctx, r.c.rdb, []string{r.c.key(key)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= int64(limit), nil
}

var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker is a single-instance SET NX lock released only by its token holder.
type Locker struct {
	c          *Client
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewLocker(c *Client) *Locker {
	return &Locker{c: c, attempts: 5, backoff: 25 * time.Millisecond, maxBackoff: 200 * time.Millisecond}
}

// TryLock polls with doubling backoff and then reports domain.ErrLockHeld.
// Redis failures are returned unwrapped so the caller can fail open.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	wait := l.backoff
	var lastErr error
	for i := 0; i < l.attempts; i++ {
		ok, err := l.c.rdb.SetNX(ctx, l.c.key(key), token, ttl).Result()
		if err == nil && ok {
			return token, nil
		}
		lastErr = err
		if i == l.attempts-1 {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
		if wait *= 2; wait > l.maxBackoff {
			wait = l.maxBackoff
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", domain.ErrLockHeld
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	return releaseIfOwner.Run(ctx, l.c.rdb, []string{l.c.key(key)}, token).Err()
}
