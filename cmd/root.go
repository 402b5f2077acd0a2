package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/watchtower/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "watchtower",
	Short: "Risk indicator fusion and phase escalation engine",
	Long:  "Classifies risk indicators against thresholds, fuses them into a composite HOPI score, and drives a hysteretic phase state machine with alerting and history.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
