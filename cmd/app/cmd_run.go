package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runTestMode bool

// runCmd executes one research run and exits.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one research run",
	Long: `Execute one full research run over the watchlist and print the outcome.
With --test-mode the emission gates are bypassed and nothing is delivered
to Telegram or the event bus.`,
	RunE: runOnce,
}

// loopCmd starts scheduled mode.
var loopCmd = &cobra.Command{
	Use:     "loop",
	Aliases: []string{"serve"},
	Short:   "Run on a schedule with the ops API",
	Long: `Start scheduled mode: research runs on the configured cron spec, the
daily performance sweep, the hourly cache sweep, and the ops HTTP API.
Blocks until interrupted.`,
	RunE: runLoop,
}

func init() {
	runCmd.Flags().BoolVar(&runTestMode, "test-mode", false, "bypass emission gates and skip delivery")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(loopCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	testMode := runTestMode || app.Config.TestMode
	res, runErr := app.Research.Run(cmd.Context(), testMode)
	if res != nil {
		fmt.Printf("run finished: state=%s duration=%s signals=%d\n",
			res.State, res.Duration.Round(time.Millisecond), len(res.Signals))
		switch {
		case res.MacroAlert:
			fmt.Println("macro gate closed: warning sent, no signals emitted")
		case res.Suppressed:
			fmt.Println("negative market context: signal emission suppressed")
		}
		for _, sig := range res.Signals {
			fmt.Printf("  %-6s score=%.1f confidence=%.2f\n", sig.Symbol, sig.TotalScore, sig.Confidence)
		}
	}
	return runErr
}

func runLoop(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	return app.Run(cmd.Context())
}
