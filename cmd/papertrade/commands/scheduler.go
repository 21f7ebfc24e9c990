package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/paper-kospi/backend/internal/scheduler"
	"github.com/wonny/paper-kospi/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/papertrade scheduler start
  go run ./cmd/papertrade scheduler list
  go run ./cmd/papertrade scheduler run portfolio_snapshot`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- cache_sweep: 1분마다 (만료된 캐시 엔트리 정리)
- quote_prewarm: 평일 9-15시 30초마다 (보유 종목 시세 갱신)
- portfolio_snapshot: 평일 오후 4시 (일별 수익률 기록)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Paper KOSPI Scheduler ===")

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Printf("Running job: %s\n", jobName)

	result, err := sched.RunJobNow(context.Background(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %s: %s", jobName, result.Duration, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	session := "closed"
	if result.MarketOpen {
		session = "open"
	}
	PrintSuccess(fmt.Sprintf("%s completed in %s (attempts: %d, market %s)", jobName, result.Duration, result.Attempts, session))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	fmt.Println("\nRegistered jobs:")
	PrintTableHeader([]string{"JOB", "SCHEDULE", "NEXT RUN"}, jobTableWidths)
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if s := stats[name]; s.NextRun != nil {
			next = s.NextRun.Format("2006-01-02 15:04:05")
		}
		PrintTableRow([]string{name, stats[name].Schedule, next}, jobTableWidths)
	}
}

var jobTableWidths = []int{20, 24, 19}

func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := newApp(true)
	if err != nil {
		return nil, nil, err
	}

	sched, err := a.newScheduler()
	if err != nil {
		a.close()
		return nil, nil, err
	}
	return a, sched, nil
}

// newScheduler registers every job against this process's caches
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log,
		scheduler.WithLocation(a.clock.Location()),
		scheduler.WithSessionClock(a.clock),
	)

	caches := append(a.market.Sweepers(), a.trading.Portfolios().Cache())
	for _, job := range []scheduler.Job{
		jobs.NewCacheSweepJob(caches, a.log),
		jobs.NewQuotePrewarmJob(a.trading, a.market.Quotes, a.clock, a.log),
		jobs.NewPortfolioSnapshotJob(a.trading, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
