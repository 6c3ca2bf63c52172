package domain

import "time"

// CostMetrics is the token and dollar accounting for one completion, or an
// accumulation of many.
type CostMetrics struct {
	InputCost    float64 `json:"inputCost" db:"input_cost"`
	OutputCost   float64 `json:"outputCost" db:"output_cost"`
	TotalCost    float64 `json:"totalCost" db:"total_cost"`
	InputTokens  int     `json:"inputTokens" db:"input_tokens"`
	OutputTokens int     `json:"outputTokens" db:"output_tokens"`
}

// Add accumulates other into m.
func (m *CostMetrics) Add(other CostMetrics) {
	m.InputCost += other.InputCost
	m.OutputCost += other.OutputCost
	m.TotalCost += other.TotalCost
	m.InputTokens += other.InputTokens
	m.OutputTokens += other.OutputTokens
}

// Subtract removes other from m.
func (m *CostMetrics) Subtract(other CostMetrics) {
	m.InputCost -= other.InputCost
	m.OutputCost -= other.OutputCost
	m.TotalCost -= other.TotalCost
	m.InputTokens -= other.InputTokens
	m.OutputTokens -= other.OutputTokens
}

// CostEntry is one metered request in an identity's ledger.
type CostEntry struct {
	Timestamp time.Time `json:"timestamp" db:"ts"`
	CostMetrics
	Message        string `json:"message" db:"message"`
	ConversationID string `json:"conversationId" db:"conversation_id"`
}

// UserCosts is an identity's ledger slice: rolling totals plus request history.
type UserCosts struct {
	Totals   CostMetrics `json:"totalCosts"`
	Requests []CostEntry `json:"requests"`
}

// GlobalCosts is the single cross-identity accumulator. It must equal the sum
// of all per-identity totals at every observable point.
type GlobalCosts struct {
	Totals        CostMetrics `json:"totals"`
	TotalRequests int         `json:"totalRequests"`
	LastUpdated   time.Time   `json:"lastUpdated"`
}

// UserCostSummary is one row of the per-identity spend listing.
type UserCostSummary struct {
	ID           string  `json:"id"`
	TotalCost    float64 `json:"totalCost"`
	RequestCount int     `json:"requestCount"`
}
