package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shelfwatch/shelfwatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "shelfwatch",
	Short: "Retail distribution tracker for consumer brands",
	Long:  "Scans brand store-locator pages, extracts retail locations across provider formats, and tracks territory gains and losses over time.",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return initApp()
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

// initApp loads configuration and replaces the global logger before any
// subcommand runs.
func initApp() error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	if err := config.InitLogger(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
