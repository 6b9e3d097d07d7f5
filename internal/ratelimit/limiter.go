package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/X-spec7/book-review-backend/internal/config"
)

// ErrRateLimited indicates the caller exhausted its attempt budget and
// must wait out the cooldown.
var ErrRateLimited = errors.New("rate limited")

// Limiter throttles login and refresh attempts with Redis counters keyed
// by email and client IP. A Redis outage fails open: authentication keeps
// working unthrottled and the error is logged.
type Limiter struct {
	redis *redis.Client
	cfg   config.RateLimitConfig
	log   zerolog.Logger
}

func New(redisClient *redis.Client, cfg config.RateLimitConfig, log zerolog.Logger) *Limiter {
	return &Limiter{
		redis: redisClient,
		cfg:   cfg,
		log:   log,
	}
}

// AllowLogin records a login attempt for the email+IP pair and reports
// whether it is within budget.
func (l *Limiter) AllowLogin(ctx context.Context, email, ip string) error {
	if !l.enabled() {
		return nil
	}

	if err := l.bump(ctx, loginKey("email", email), l.cfg.MaxLogin); err != nil {
		return err
	}
	return l.bump(ctx, loginKey("ip", ip), l.cfg.MaxLogin)
}

// ResetLogin clears the failed-attempt counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, email string) {
	if !l.enabled() || email == "" {
		return
	}
	if err := l.redis.Del(ctx, loginKey("email", email)).Err(); err != nil {
		l.log.Warn().Err(err).Msg("reset login counter failed")
	}
}

// AllowRefresh records a refresh attempt for the client IP.
func (l *Limiter) AllowRefresh(ctx context.Context, ip string) error {
	if !l.enabled() {
		return nil
	}
	return l.bump(ctx, fmt.Sprintf("rl:refresh:ip:%s", ip), l.cfg.MaxRefresh)
}

func (l *Limiter) enabled() bool {
	return l != nil && l.cfg.Enabled && l.redis != nil
}

func (l *Limiter) bump(ctx context.Context, key string, budget int) error {
	if key == "" || budget <= 0 {
		return nil
	}

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("rate limit counter unavailable")
		return nil
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.cfg.Cooldown).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("rate limit expire failed")
		}
	}

	if count > int64(budget) {
		return ErrRateLimited
	}
	return nil
}

func loginKey(kind, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("rl:login:%s:%s", kind, value)
}
