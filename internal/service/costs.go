package service

import (
	"math"

	"github.com/ouf-ai/ouf-gateway/internal/domain"
)

// Per-1000-token rates in USD. Output tokens are priced higher than input.
const (
	inputRatePer1K  = 0.015
	outputRatePer1K = 0.075
)

// round4 rounds half away from zero to 4 decimal places. Deterministic for
// equal inputs.
func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// computeCosts prices the reported token usage.
func computeCosts(inputTokens, outputTokens int) domain.CostMetrics {
	inputCost := round4(float64(inputTokens) / 1000 * inputRatePer1K)
	outputCost := round4(float64(outputTokens) / 1000 * outputRatePer1K)
	return domain.CostMetrics{
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    round4(inputCost + outputCost),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}
}
