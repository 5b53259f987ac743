package domain

// Sentiment is the structured payload returned by the sentiment provider.
// Score runs 0 (extremely bearish) to 100 (extremely bullish) for the Yes
// outcome. Fallback marks payloads synthesized locally because the provider
// was unreachable or misconfigured.
type Sentiment struct {
	Score          int      `json:"score"`
	Summary        string   `json:"summary"`
	BullishFactors []string `json:"bullishFactors"`
	BearishFactors []string `json:"bearishFactors"`
	Fallback       bool     `json:"fallback,omitempty"`
}
