package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/solar-scout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "solar-scout",
	Short: "Solar potential analysis engine",
	Long:  "Samples candidate sites in a geographic disk, integrates clear-sky plane-of-array irradiance, normalises against climatology, and ranks the top sites by quality or energy per dollar.",
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
