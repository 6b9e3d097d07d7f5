package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/X-spec7/book-review-backend/internal/config"
)

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, cfg, zerolog.Nop()), mr
}

func TestAllowLogin_Budget(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{
		Enabled:  true,
		MaxLogin: 3,
		Cooldown: time.Minute,
	})

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.AllowLogin(ctx, "a@x.com", "10.0.0.1"))
	}
	assert.ErrorIs(t, limiter.AllowLogin(ctx, "a@x.com", "10.0.0.1"), ErrRateLimited)

	// A different email from a different address is unaffected.
	assert.NoError(t, limiter.AllowLogin(ctx, "b@x.com", "10.0.0.2"))
}

func TestResetLogin_ClearsCounter(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{
		Enabled:  true,
		MaxLogin: 2,
		Cooldown: time.Minute,
	})

	require.NoError(t, limiter.AllowLogin(ctx, "a@x.com", ""))
	require.NoError(t, limiter.AllowLogin(ctx, "a@x.com", ""))
	require.ErrorIs(t, limiter.AllowLogin(ctx, "a@x.com", ""), ErrRateLimited)

	limiter.ResetLogin(ctx, "a@x.com")
	assert.NoError(t, limiter.AllowLogin(ctx, "a@x.com", ""))
}

func TestAllowLogin_CooldownExpires(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, config.RateLimitConfig{
		Enabled:  true,
		MaxLogin: 1,
		Cooldown: time.Minute,
	})

	require.NoError(t, limiter.AllowLogin(ctx, "a@x.com", ""))
	require.ErrorIs(t, limiter.AllowLogin(ctx, "a@x.com", ""), ErrRateLimited)

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, limiter.AllowLogin(ctx, "a@x.com", ""))
}

func TestAllowRefresh_Budget(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{
		Enabled:    true,
		MaxRefresh: 2,
		Cooldown:   time.Minute,
	})

	assert.NoError(t, limiter.AllowRefresh(ctx, "10.0.0.1"))
	assert.NoError(t, limiter.AllowRefresh(ctx, "10.0.0.1"))
	assert.ErrorIs(t, limiter.AllowRefresh(ctx, "10.0.0.1"), ErrRateLimited)
}

func TestDisabledLimiter(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{Enabled: false, MaxLogin: 1})

	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.AllowLogin(ctx, "a@x.com", "10.0.0.1"))
	}
}

func TestNilRedisFailsOpen(t *testing.T) {
	ctx := context.Background()
	limiter := New(nil, config.RateLimitConfig{Enabled: true, MaxLogin: 1, Cooldown: time.Minute}, zerolog.Nop())

	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.AllowLogin(ctx, "a@x.com", "10.0.0.1"))
	}
}
