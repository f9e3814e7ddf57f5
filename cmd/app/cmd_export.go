package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	exportML  bool
	exportOut string
)

// exportCmd writes the signal history to a flat file.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export signal history",
	Long: `Export the stored signal history as CSV, oldest first, with scores,
ratings and 7d outcomes. With --ml the export is a training set instead:
normalized features plus outcome targets, limited to signals with a
measured return.`,
	RunE: runExport,
}

// performanceCmd updates 7d outcomes for due signals.
var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Update 7d outcomes for due signals",
	RunE:  runPerformance,
}

func init() {
	exportCmd.Flags().BoolVar(&exportML, "ml", false, "write the ML training set instead of the raw history")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (defaults per format)")
	rootCmd.AddCommand(exportCmd, performanceCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	path := exportOut
	var rows int
	if exportML {
		if path == "" {
			path = "training_data.csv"
		}
		rows, err = app.Export.ML(cmd.Context(), path)
	} else {
		if path == "" {
			path = "signals_export.csv"
		}
		rows, err = app.Export.CSV(cmd.Context(), path)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d rows written to %s\n", rows, path)
	return nil
}

func runPerformance(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	updated, err := app.Performance.Update(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%d signals updated with 7d outcomes\n", updated)
	return nil
}
