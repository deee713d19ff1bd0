package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atelier-labs/campaign-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "campaign-engine",
	Short: "AI content orchestration and deep research engine",
	Long:  "Routes generation tasks across Anthropic and Google models by complexity and priority, retrieves marketing frameworks via vector search, and produces web-grounded research reports.",
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
