package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FinScout/internal/di"
	"FinScout/pkg/config"
	"FinScout/pkg/server"
)

var configPath string

// rootCmd is the base command for the FinScout CLI.
var rootCmd = &cobra.Command{
	Use:   "finscout",
	Short: "FinScout equity research pipeline",
	Long: `FinScout runs a staged research pipeline over a configured watchlist:
macro climate, market context, fundamentals, technicals and news sentiment,
synthesized into scored signals with Telegram delivery.

Run once with 'finscout run', or keep it on a schedule with 'finscout loop'.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the configuration file")
}

// initApp loads configuration and assembles the full application graph.
func initApp() (*server.App, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	return app, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
