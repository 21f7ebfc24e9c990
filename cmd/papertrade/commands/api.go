package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/paper-kospi/backend/internal/api"
	"github.com/wonny/paper-kospi/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API + 시세 스트림 서버를 시작합니다.

Endpoints:
  GET  /health                        - Health check
  GET  /api/market/status             - 장 운영 상태
  GET  /api/market/cache              - 캐시 통계
  GET  /api/stocks                    - 종목 랭킹 (page, size, sector, sort)
  GET  /api/stocks/{code}/quote       - 현재가
  GET  /api/stocks/{code}/chart       - 일/주/월봉 (period, bars)
  GET  /api/stocks/{code}/indicators  - 기술적 지표 (sma, ema, rsi, macd, bb)
  GET  /api/stocks/{code}/volume      - 거래량 분석 (days)
  POST /api/users                     - 회원가입
  GET  /api/portfolio                 - 포트폴리오 (basic auth)
  GET  /api/portfolio/performance     - 일별 수익률 (basic auth)
  POST /api/orders                    - 주문 (basic auth)
  GET  /api/orders                    - 주문 내역 (basic auth)
  GET  /ws/quotes?codes=005930,...    - 실시간 시세 (websocket)

Example:
  go run ./cmd/papertrade api
  go run ./cmd/papertrade api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort        string
	streamInterval time.Duration
	withScheduler  bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값: PORT 환경변수)")
	apiCmd.Flags().DurationVar(&streamInterval, "stream-interval", 2*time.Second, "websocket 시세 전송 주기")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", true, "캐시 정리/시세 예열/스냅샷 작업을 같은 프로세스에서 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Paper KOSPI API Server ===")

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	router := api.NewRouter(api.Handlers{
		Stock:   handlers.NewStockHandler(a.market, log),
		Trading: handlers.NewTradingHandler(a.trading, log),
		Market:  handlers.NewMarketHandler(a.clock, a.market),
		Stream:  handlers.NewStreamHandler(a.market.Quotes, streamInterval, log),
	}, a.trading, log)

	server := api.New(a.cfg, log, router)

	// 같은 프로세스의 캐시를 정리해야 하므로 API 서버와 함께 실행
	if withScheduler {
		sched, err := a.newScheduler()
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
