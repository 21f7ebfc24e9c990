package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds field first.
	// Evaluated in market time (Asia/Seoul).
	// Examples: "0 0 16 * * MON-FRI" (평일 16:00), "@every 1m"
	Schedule() string
}

// SessionClock reports whether the regular session is open at a time
type SessionClock interface {
	IsOpen(now time.Time) bool
}

// JobResult is one execution of a job, retries included
type JobResult struct {
	JobName    string        `json:"job_name"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	Attempts   int           `json:"attempts"`
	MarketOpen bool          `json:"market_open"` // 시작 시점 정규장 여부
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
}

// maxHistory bounds the results kept per job
const maxHistory = 100

// JobHistory holds the most recent results of one job, oldest first
type JobHistory struct {
	Results []JobResult `json:"results"`
}

func (h *JobHistory) add(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// historySummary is JobHistory folded into the fields JobStats reports
type historySummary struct {
	runs        int
	failures    int
	sessionRuns int
	lastSuccess *time.Time
	lastFailure *time.Time
}

func (h *JobHistory) summarize() historySummary {
	var sum historySummary
	for i := range h.Results {
		r := h.Results[i]
		sum.runs++
		if r.MarketOpen {
			sum.sessionRuns++
		}
		if r.Success {
			sum.lastSuccess = &r.StartTime
		} else {
			sum.failures++
			sum.lastFailure = &r.StartTime
		}
	}
	return sum
}

func (s historySummary) successRate() float64 {
	if s.runs == 0 {
		return 0
	}
	return float64(s.runs-s.failures) / float64(s.runs)
}
