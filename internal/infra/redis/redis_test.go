package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socials-billing/internal/config"
	"socials-billing/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewClient(ctx, &config.RedisConfig{URL: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	require.NoError(t, c.Close())

	c, err = NewClient(ctx, &config.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	require.NoError(t, c.Ping(ctx))
	_ = c.Close()
}

func TestClient_GetMissing(t *testing.T) {
	_, c := newTestClient(t)
	_, err := c.Get(context.Background(), "absent")
	assert.True(t, errors.Is(err, redis.Nil))
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestClient(t)
	l := NewLocker(c)
	l.backoff, l.maxBackoff = time.Millisecond, time.Millisecond

	token, err := l.TryLock(ctx, "lock:checkout:A:pro", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = l.TryLock(ctx, "lock:checkout:A:pro", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	// A different key is independent.
	_, err = l.TryLock(ctx, "lock:checkout:B:pro", time.Minute)
	require.NoError(t, err)

	// A stale token does not release someone else's lock.
	require.NoError(t, l.Unlock(ctx, "lock:checkout:A:pro", "not-the-token"))
	assert.True(t, mr.Exists("lock:checkout:A:pro"))

	require.NoError(t, l.Unlock(ctx, "lock:checkout:A:pro", token))
	assert.False(t, mr.Exists("lock:checkout:A:pro"))

	_, err = l.TryLock(ctx, "lock:checkout:A:pro", time.Minute)
	assert.NoError(t, err)
}

func TestRedisLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestClient(t)
	l := NewLocker(c)
	l.backoff, l.maxBackoff = time.Millisecond, time.Millisecond

	_, err := l.TryLock(ctx, "lock:x", 2*time.Second)
	require.NoError(t, err)
	mr.FastForward(3 * time.Second)
	_, err = l.TryLock(ctx, "lock:x", 2*time.Second)
	assert.NoError(t, err)
}

func TestRedisLocker_Unavailable(t *testing.T) {
	mr, c := newTestClient(t)
	l := NewLocker(c)
	l.backoff, l.maxBackoff = time.Millisecond, time.Millisecond
	mr.SetError("ERR injected failure")

	_, err := l.TryLock(context.Background(), "lock:x", time.Second)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrLockHeld))
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestClient(t)
	rl := NewRateLimiter(c)
	key := CheckoutKey("A")
	assert.Equal(t, "rate_limit:checkout:A", key)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(61 * time.Second)
	ok, err = rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "window should reset")
}

func TestRateLimiter_WindowAlwaysHasTTL(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestClient(t)
	rl := NewRateLimiter(c)

	_, err := rl.Allow(ctx, CallbackKey("10.0.0.1"), 5, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("rate_limit:callback:10.0.0.1"))

	// Later hits keep the original window.
	mr.FastForward(10 * time.Second)
	_, err = rl.Allow(ctx, CallbackKey("10.0.0.1"), 5, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, mr.TTL("rate_limit:callback:10.0.0.1"))
}

func TestClient_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "billing:")
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set(ctx, "plan:pro", "{}", time.Minute))
	assert.True(t, mr.Exists("billing:plan:pro"))
	require.NoError(t, c.Del(ctx, "plan:pro", "plans:all"))
	assert.False(t, mr.Exists("billing:plan:pro"))

	l := NewLocker(c)
	token, err := l.TryLock(ctx, "lock:checkout:A:pro", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("billing:lock:checkout:A:pro"))
	require.NoError(t, l.Unlock(ctx, "lock:checkout:A:pro", token))

	_, err = NewRateLimiter(c).Allow(ctx, CheckoutKey("A"), 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("billing:rate_limit:checkout:A"))
}
