package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "KOSPI 모의투자 백엔드",
	Long: `Paper KOSPI Unified CLI

KIS/Naver 시세를 캐시 뒤에서 조회하고 가상 계좌로 모의 매매합니다.

Usage:
  go run ./cmd/papertrade [command]

Examples:
  go run ./cmd/papertrade migrate
  go run ./cmd/papertrade api
  go run ./cmd/papertrade scheduler start
  go run ./cmd/papertrade quote 005930
  go run ./cmd/papertrade market-status`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug log level)")
}
