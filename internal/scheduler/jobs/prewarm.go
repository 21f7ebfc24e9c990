package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// HeldCodeLister lists codes held by any paper account
type HeldCodeLister interface {
	HeldCodes(ctx context.Context) ([]string, error)
}

// QuoteWarmer reads quotes through the shared cache
type QuoteWarmer interface {
	GetMany(ctx context.Context, codes []string) (map[string]contracts.Quote, map[string]error)
}

// SessionClock reports whether the market is open
type SessionClock interface {
	IsOpen(now time.Time) bool
}

// QuotePrewarmJob keeps quotes of held stocks fresh during the session so
// portfolio valuation rarely waits on the upstream.
type QuotePrewarmJob struct {
	holdings HeldCodeLister
	quotes   QuoteWarmer
	clock    SessionClock
	logger   *logger.Logger
	now      func() time.Time
}

// NewQuotePrewarmJob creates a new quote prewarm job
func NewQuotePrewarmJob(holdings HeldCodeLister, quotes QuoteWarmer, clock SessionClock, log *logger.Logger) *QuotePrewarmJob {
	return &QuotePrewarmJob{
		holdings: holdings,
		quotes:   quotes,
		clock:    clock,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *QuotePrewarmJob) Name() string {
	return "quote_prewarm"
}

// Schedule returns the cron schedule (every 30s, 09:00-14:59 weekdays)
func (j *QuotePrewarmJob) Schedule() string {
	return "*/30 * 9-14 * * MON-FRI"
}

// Run refreshes quotes for every held code. Outside the session it does nothing.
func (j *QuotePrewarmJob) Run(ctx context.Context) error {
	if !j.clock.IsOpen(j.now()) {
		return nil
	}

	codes, err := j.holdings.HeldCodes(ctx)
	if err != nil {
		return fmt.Errorf("list held codes: %w", err)
	}
	if len(codes) == 0 {
		return nil
	}

	quotes, errs := j.quotes.GetMany(ctx, codes)

	j.logger.WithFields(map[string]interface{}{
		"codes":  len(codes),
		"warmed": len(quotes),
		"failed": len(errs),
	}).Debug("Quotes prewarmed")

	// 일부 실패는 다음 주기에 재시도
	if len(quotes) == 0 && len(errs) > 0 {
		joined := make([]error, 0, len(errs))
		for code, err := range errs {
			joined = append(joined, fmt.Errorf("%s: %w", code, err))
		}
		return errors.Join(joined...)
	}
	return nil
}
