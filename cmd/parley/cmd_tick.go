package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tickCmd)
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run a single engine pass over eligible conversations",
	Long: `Tick processes every open conversation flagged for processing once and
exits. Useful for cron-driven deployments and for draining the queue
manually while the daemon is stopped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.Tick(context.Background()); err != nil {
			return fmt.Errorf("tick: %w", err)
		}
		return nil
	},
}
