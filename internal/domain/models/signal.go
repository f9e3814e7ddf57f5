package models

import "time"

// Keys of SignalRecord.Scores.
const (
	ScoreMacro       = "macro"
	ScoreMarket      = "market"
	ScoreFundamental = "fundamental"
	ScoreSentiment   = "sentiment"
	ScoreTechnical   = "technical"
)

// SignalRecord is an emitted buy-candidate signal. Created once at signal
// time; mutated exactly twice afterward (rating, performance update).
type SignalRecord struct {
	ID         string             `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	Symbol     string             `json:"symbol"`
	Price      *float64           `json:"price,omitempty"` // nil when the quote failed at creation
	Scores     map[string]float64 `json:"scores"`
	TotalScore float64            `json:"total_score"` // normalized 0-10
	Confidence float64            `json:"confidence"`  // 0-1
	Summaries  map[string]string  `json:"summaries,omitempty"`

	Rating  *int       `json:"rating,omitempty"` // 1-5, assigned later
	RatedAt *time.Time `json:"rated_at,omitempty"`

	PriceAfter7d         *float64   `json:"price_after_7d,omitempty"`
	ActualReturn         *float64   `json:"actual_return,omitempty"` // percent
	PerformanceUpdatedAt *time.Time `json:"performance_updated_at,omitempty"`
}

// Score returns a named sub-score, zero when absent.
func (s *SignalRecord) Score(name string) float64 {
	if s.Scores == nil {
		return 0
	}
	return s.Scores[name]
}

// SignalStatistics summarizes the stored signal history.
type SignalStatistics struct {
	Total           int         `json:"total"`
	Rated           int         `json:"rated"`
	Unrated         int         `json:"unrated"`
	AvgRating       float64     `json:"avg_rating"`
	RatingCounts    map[int]int `json:"rating_counts"`
	WithPerformance int         `json:"with_performance"`
	AvgReturn       float64     `json:"avg_return"`
	PositiveReturns int         `json:"positive_returns"`
	NegativeReturns int         `json:"negative_returns"`
}
