// Package analysis holds the scoring stages of the research pipeline. Each
// analyzer reports a model value carrying its own verdict; failures downgrade
// the result instead of aborting the run.
package analysis

import (
	"math"

	"FinScout/internal/domain/models"
)

// articleText is the text handed to classifiers: headline plus description.
func articleText(a models.Article) string {
	return a.Title + ". " + a.Description
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
