package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"FinScout/internal/services/classify"
)

// llmCheckCmd probes the local LLM and grades the classifier.
var llmCheckCmd = &cobra.Command{
	Use:   "llm-check",
	Short: "Probe the local LLM and grade the classifier",
	Long: `Probe the configured Ollama endpoint, then run the canned headlines
through the sentiment classifier and report its accuracy. Without a
reachable LLM the classifier falls back to keyword scoring, which is
what this command makes visible.`,
	RunE: runLLMCheck,
}

func init() {
	rootCmd.AddCommand(llmCheckCmd)
}

func runLLMCheck(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if app.LLM.Available(ctx) {
		fmt.Printf("llm reachable at %s (model %s)\n", app.Config.LLM.BaseURL, app.Config.LLM.Model)
	} else {
		fmt.Printf("llm unreachable at %s, classifier will use keyword fallback\n", app.Config.LLM.BaseURL)
	}

	report := app.Classifier.QualityCheck(ctx)
	for _, c := range report.Cases {
		mark := "ok"
		if !c.Correct {
			mark = fmt.Sprintf("MISS (want %s)", c.Expected)
		}
		fmt.Printf("  %-55s -> %-8s %s\n", c.Text, c.Got, mark)
	}
	fmt.Printf("classifier accuracy %s (%.0f%%) status=%s\n",
		report.Score, report.Accuracy*100, report.Status)

	if report.Status == classify.QualityFail {
		return fmt.Errorf("classifier quality below threshold")
	}
	return nil
}
