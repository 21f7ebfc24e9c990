package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// Snapshotter writes one daily valuation per account
type Snapshotter interface {
	SnapshotAll(ctx context.Context) (int, error)
}

// PortfolioSnapshotJob records end-of-day portfolio valuations
// ⭐ SSOT: 일별 수익률 스냅샷 스케줄은 이 Job에서만
type PortfolioSnapshotJob struct {
	trading Snapshotter
	logger  *logger.Logger
}

// NewPortfolioSnapshotJob creates a new portfolio snapshot job
func NewPortfolioSnapshotJob(trading Snapshotter, log *logger.Logger) *PortfolioSnapshotJob {
	return &PortfolioSnapshotJob{
		trading: trading,
		logger:  log,
	}
}

// Name returns the job name
func (j *PortfolioSnapshotJob) Name() string {
	return "portfolio_snapshot"
}

// Schedule returns the cron schedule (weekdays 4 PM KST, after the close)
func (j *PortfolioSnapshotJob) Schedule() string {
	return "0 0 16 * * MON-FRI"
}

// Run snapshots every account. Snapshots are upserted per (user, date),
// so a retry after a partial failure is safe.
func (j *PortfolioSnapshotJob) Run(ctx context.Context) error {
	j.logger.Info("Starting portfolio snapshot")

	written, err := j.trading.SnapshotAll(ctx)
	if err != nil {
		return fmt.Errorf("snapshot portfolios (%d written): %w", written, err)
	}

	j.logger.WithField("written", written).Info("Portfolio snapshot completed")
	return nil
}
