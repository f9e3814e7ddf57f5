package provider

import "FinScout/pkg/resilience"

// BreakerGauge maps a breaker state onto the metrics gauge scale
// (0 closed, 1 half-open, 2 open).
func BreakerGauge(s resilience.BreakerState) int {
	switch s {
	case resilience.BreakerOpen:
		return 2
	case resilience.BreakerHalfOpen:
		return 1
	default:
		return 0
	}
}
