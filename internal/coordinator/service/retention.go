package service

import (
	"context"
	"time"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
	"github.com/nemanja-m/mrsched/internal/shared/logging"
)

// RetentionJanitor periodically removes finished and failed jobs that
// completed more than ttl ago.
type RetentionJanitor struct {
	checkInterval time.Duration
	ttl           time.Duration
	jobService    core.JobService
	now           func() time.Time
	logger        logging.Logger
}

func NewRetentionJanitor(
	checkInterval time.Duration,
	ttl time.Duration,
	jobService core.JobService,
	logger logging.Logger,
) *RetentionJanitor {
	return &RetentionJanitor{
		checkInterval: checkInterval,
		ttl:           ttl,
		jobService:    jobService,
		now:           time.Now,
		logger:        logger,
	}
}

// Start blocks until ctx is cancelled. It returns immediately when the
// ttl is zero, which disables pruning.
func (j *RetentionJanitor) Start(ctx context.Context) {
	if j.ttl <= 0 {
		j.logger.Info("Job retention disabled")
		return
	}

	ticker := time.NewTicker(j.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.pruneExpiredJobs()
		}
	}
}

func (j *RetentionJanitor) pruneExpiredJobs() {
	threshold := j.now().Add(-j.ttl)
	if pruned := j.jobService.PruneJobs(threshold); pruned > 0 {
		j.logger.Info("Pruned expired jobs", "count", pruned, "completed_before", threshold)
	}
}
