package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/urban-issue-api/models"
)

const statsLock = "stats_refresh_job"

// StatsRefresher recomputes and caches the admin stats
type StatsRefresher interface {
	RefreshStats(ctx context.Context) (*models.Stats, error)
}

// Locker is a lock shared by every instance of the API
type Locker interface {
	TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron       *cron.Cron
	Stats      StatsRefresher
	Lock       Locker
	instanceID string
}

// NewScheduler creates a new scheduler instance. lock may be nil when a single
// instance runs.
func NewScheduler(stats StatsRefresher, lock Locker) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		Stats:      stats,
		Lock:       lock,
		instanceID: instanceID,
	}
}

// Start registers the jobs on spec and begins running them
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RefreshStats); err != nil {
		return fmt.Errorf("register stats refresh job: %w", err)
	}
	s.cron.Start()
	zap.S().Infow("scheduler started", "stats", spec, "instance", s.instanceID)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// RefreshStats warms the stats cache, skipping the run if another instance holds the lock
func (s *Scheduler) RefreshStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if s.Lock != nil {
		acquired, err := s.Lock.TryAcquire(ctx, statsLock, s.instanceID, 5*time.Minute)
		if err != nil {
			zap.S().Errorw("failed to acquire lock for stats job", "error", err)
			return
		}
		if !acquired {
			zap.S().Debug("stats job already running on another instance, skipping")
			return
		}
		defer func() {
			if err := s.Lock.Release(ctx, statsLock, s.instanceID); err != nil {
				zap.S().Warnw("failed to release stats job lock", "error", err)
			}
		}()
	}

	start := time.Now()
	stats, err := s.Stats.RefreshStats(ctx)
	if err != nil {
		zap.S().Errorw("failed to refresh stats", "error", err)
		return
	}
	zap.S().Debugw("stats refreshed", "issues", stats.Issues.Total, "took", time.Since(start))
}
