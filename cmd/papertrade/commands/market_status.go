package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/paper-kospi/backend/internal/marketclock"
	"github.com/wonny/paper-kospi/backend/pkg/config"
)

// marketStatusCmd represents the market-status command
var marketStatusCmd = &cobra.Command{
	Use:   "market-status",
	Short: "장 운영 상태 확인",
	Long: `현재 시각 기준으로 정규장 운영 여부와 적용되는 시세 캐시 TTL을 출력합니다.

Example:
  go run ./cmd/papertrade market-status`,
	RunE: runMarketStatus,
}

func init() {
	rootCmd.AddCommand(marketStatusCmd)
}

func runMarketStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	clock, err := marketClock(cfg.Market)
	if err != nil {
		return err
	}

	policy := marketclock.TTLPolicy{
		Clock:  clock,
		Open:   cfg.Cache.QuoteOpenTTL,
		Closed: cfg.Cache.QuoteClosedTTL,
	}

	now := time.Now()
	status := clock.StatusAt(now)

	state := "🔴 CLOSED"
	if status.Open {
		state = "🟢 OPEN"
	}

	PrintDoubleSeparator()
	fmt.Println("  KRX Market Status")
	PrintSeparator()
	PrintKeyValue("Now", status.Now.Format("2006-01-02 (Mon) 15:04:05 MST"), 10)
	PrintKeyValue("Session", fmt.Sprintf("%02d:00 - %02d:00 %s", status.OpenHour, status.CloseHour, status.Timezone), 10)
	PrintKeyValue("State", state, 10)
	PrintKeyValue("Quote TTL", policy.For(now).String(), 10)
	PrintDoubleSeparator()

	return nil
}
