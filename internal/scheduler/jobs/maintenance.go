package jobs

import (
	"context"

	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// CacheSweepJob physically removes expired entries from every freshness
// cache. Reads already treat them as absent; this only bounds memory.
type CacheSweepJob struct {
	caches []freshness.Sweeper
	logger *logger.Logger
}

// NewCacheSweepJob creates a new cache sweep job
func NewCacheSweepJob(caches []freshness.Sweeper, log *logger.Logger) *CacheSweepJob {
	return &CacheSweepJob{
		caches: caches,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

// Schedule returns the cron schedule (every minute)
func (j *CacheSweepJob) Schedule() string {
	return "0 * * * * *"
}

// Run sweeps all caches
func (j *CacheSweepJob) Run(ctx context.Context) error {
	total := 0
	for _, c := range j.caches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if removed := c.Sweep(); removed > 0 {
			j.logger.WithFields(map[string]interface{}{
				"cache":   c.Name(),
				"removed": removed,
			}).Debug("Cache swept")
			total += removed
		}
	}

	if total > 0 {
		j.logger.WithField("removed", total).Info("Cache sweep completed")
	}

	return nil
}
