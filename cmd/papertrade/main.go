package main

import (
	"os"

	"github.com/wonny/paper-kospi/backend/cmd/papertrade/commands"
)

// main is the entry point for the paper trading CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/papertrade [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
