package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/X-spec7/book-review-backend/internal/config"
)

const purgeLockKey = "jobs:purge-tokens:lock"

// TokenPurger deletes refresh-token rows that reached a terminal state.
type TokenPurger interface {
	DeleteDead(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs store housekeeping on a cron cadence. Purging only
// touches revoked or expired rows; live lookups never depend on it.
type Scheduler struct {
	cron   *cron.Cron
	tokens TokenPurger
	locker *redis.Client
	cfg    config.JobsConfig
	log    zerolog.Logger
}

func NewScheduler(tokens TokenPurger, locker *redis.Client, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		tokens: tokens,
		locker: locker,
		cfg:    cfg,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.PurgeEnabled {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.PurgeSpec, s.purgeDeadTokens); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits up to five seconds for an in-flight
// sweep to drain.
func (s *Scheduler) Stop() context.CancelFunc {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		select {
		case <-s.cron.Stop().Done():
		case <-ctx.Done():
		}
		cancel()
	}()
	return cancel
}

func (s *Scheduler) purgeDeadTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if !s.acquireLock(ctx) {
		s.log.Debug().Msg("purge lock held elsewhere, skipping")
		return
	}

	deleted, err := s.tokens.DeleteDead(ctx, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("purge dead refresh tokens failed")
		return
	}
	s.log.Info().Int64("deleted", deleted).Msg("purged dead refresh tokens")
}

// acquireLock takes a short Redis lease so only one instance sweeps.
// Without Redis the sweep runs anyway; the delete is idempotent.
func (s *Scheduler) acquireLock(ctx context.Context) bool {
	if s.locker == nil {
		return true
	}

	ok, err := s.locker.SetNX(ctx, purgeLockKey, "1", 10*time.Minute).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("purge lock unavailable, sweeping anyway")
		return true
	}
	return ok
}
