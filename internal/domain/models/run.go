package models

import "time"

// RunState is the pipeline position of an analysis run.
type RunState string

const (
	StateInit       RunState = "INIT"
	StateMacro      RunState = "MACRO"
	StateMarket     RunState = "MARKET"
	StateMomentum   RunState = "MOMENTUM"
	StateTechnical  RunState = "TECHNICAL"
	StateSentiment  RunState = "SENTIMENT"
	StateSynthesize RunState = "SYNTHESIZE"
	StateTerminal   RunState = "TERMINAL"
)

// RunResult accumulates stage outputs across one analysis run. Earlier
// stages' outputs are preserved when a later stage fails or the run is gated.
type RunResult struct {
	State     RunState
	StartedAt time.Time
	Duration  time.Duration

	Macro        *MacroAnalysis
	Market       *MarketContext
	Fundamentals []FundamentalScore
	Technicals   []TechnicalScore
	Sentiments   map[string]SentimentScore
	Signals      []*SignalRecord

	MacroAlert bool   // run stopped at the macro gate, alert-only
	Suppressed bool   // negative market context blocked all emission
	Err        string // orchestrator-level failure, partial results kept
}
