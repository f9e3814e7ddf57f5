package models

// Classification categories.
const (
	CategoryPositive = "POSITIVE"
	CategoryNegative = "NEGATIVE"
	CategoryNeutral  = "NEUTRAL"
	CategoryHawkish  = "HAWKISH"
	CategoryDovish   = "DOVISH"
	CategoryUnknown  = "UNKNOWN"
)

// Classification is one classifier decision.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"` // clamped [0,1]
	Reasoning  string  `json:"reasoning,omitempty"`
	Fallback   bool    `json:"fallback"` // keyword heuristic stood in for the model
}

// ClassifierDiagnostics is a point-in-time snapshot of classifier health.
type ClassifierDiagnostics struct {
	TotalRequests  int            `json:"total_requests"`
	ParseSuccesses int            `json:"parse_successes"`
	ParseFailures  int            `json:"parse_failures"`
	Fallbacks      int            `json:"fallbacks"`
	LLMUnavailable int            `json:"llm_unavailable"`
	AvgConfidence  float64        `json:"avg_confidence"`
	Categories     map[string]int `json:"categories"`
	SuccessRate    float64        `json:"success_rate"`
}
