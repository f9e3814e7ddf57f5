package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// reviewCmd lists signals still waiting for a rating.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List signals waiting for a rating",
	Long: `List unrated signals, newest first. The list is also sent to Telegram
with live prices, followed by a rating prompt for the newest signal.
With Telegram disabled only the local table is printed.`,
	RunE: runReview,
}

// rateCmd records a rating for one signal.
var rateCmd = &cobra.Command{
	Use:   "rate <signal-id> <stars>",
	Short: "Rate a signal 1-5",
	Args:  cobra.ExactArgs(2),
	RunE:  runRate,
}

// statsCmd prints and notifies the aggregate signal history statistics.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show signal history statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(reviewCmd, rateCmd, statsCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	recs, err := app.Review.Unrated(cmd.Context(), 0)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no signals waiting for review")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tSYMBOL\tSCORE\tCONF\tENTRY")
	for _, rec := range recs {
		entry := "-"
		if rec.Price != nil {
			entry = fmt.Sprintf("%.2f", *rec.Price)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.2f\t%s\n",
			rec.ID, rec.CreatedAt.Format("2006-01-02"), rec.Symbol,
			rec.TotalScore, rec.Confidence, entry)
	}
	w.Flush()

	n, err := app.Review.Notify(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("review list sent, %d pending\n", n)
	return nil
}

func runRate(cmd *cobra.Command, args []string) error {
	stars, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("stars must be a number between 1 and 5")
	}

	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Review.Rate(cmd.Context(), args[0], stars); err != nil {
		return err
	}
	fmt.Printf("signal %s rated %d/5\n", args[0], stars)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	st, err := app.Review.NotifyStats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("signals: %d total, %d rated, %d unrated\n", st.Total, st.Rated, st.Unrated)
	if st.Rated > 0 {
		fmt.Printf("average rating: %.1f/5\n", st.AvgRating)
		for stars := 5; stars >= 1; stars-- {
			if n := st.RatingCounts[stars]; n > 0 {
				fmt.Printf("  %d star: %d\n", stars, n)
			}
		}
	}
	if st.WithPerformance > 0 {
		fmt.Printf("7d outcomes: %.2f%% avg over %d signals (%d up, %d down)\n",
			st.AvgReturn, st.WithPerformance, st.PositiveReturns, st.NegativeReturns)
	}
	return nil
}
