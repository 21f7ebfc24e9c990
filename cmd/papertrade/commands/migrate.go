package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/paper-kospi/backend/internal/migrate"
	"github.com/wonny/paper-kospi/backend/pkg/config"
	"github.com/wonny/paper-kospi/backend/pkg/database"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 적용",
	Long: `바이너리에 포함된 SQL 마이그레이션을 순서대로 적용합니다.
이미 적용된 파일은 건너뜁니다.

Example:
  go run ./cmd/papertrade migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	applied, err := migrate.Apply(ctx, db.Pool, log)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if len(applied) == 0 {
		PrintSuccess("Schema is up to date")
		return nil
	}
	for _, name := range applied {
		PrintSuccess("Applied " + name)
	}
	return nil
}
