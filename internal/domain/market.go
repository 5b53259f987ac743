package domain

import "time"

// Category classifies a market. The set is closed; CreateMarket rejects
// anything outside it.
type Category string

const (
	CategoryCrypto     Category = "Crypto"
	CategoryPolitics   Category = "Politics"
	CategorySports     Category = "Sports"
	CategoryBusiness   Category = "Business"
	CategoryPopCulture Category = "Pop Culture"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryCrypto, CategoryPolitics, CategorySports, CategoryBusiness, CategoryPopCulture:
		return true
	}
	return false
}

// Outcome is one of the two mutually exclusive resolutions of a binary
// market. Price is the implied probability in [0,1]; the two outcome prices
// of a market always sum to exactly 1 after any mutation.
type Outcome struct {
	ID    string  `json:"id"`   // stable token, "YES" or "NO"
	Name  string  `json:"name"` // display name, e.g. "Yes"
	Price float64 `json:"price"`
}

// HistoryPoint is a timestamped sample of the first outcome's price,
// retained for charting.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// MaxHistoryPoints bounds the per-market history; the oldest points are
// evicted first.
const MaxHistoryPoints = 50

// Market is a binary-outcome prediction market. Volume is the cumulative
// USD notional traded since creation and never decreases.
type Market struct {
	ID          string         `json:"id"`
	Question    string         `json:"question"`
	Description string         `json:"description"`
	Image       string         `json:"image,omitempty"`
	Category    Category       `json:"category"`
	Volume      float64        `json:"volume"`
	EndDate     time.Time      `json:"endDate"`
	Outcomes    [2]Outcome     `json:"outcomes"`
	History     []HistoryPoint `json:"history"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Outcome returns the outcome with the given ID and its index, or -1 when
// the ID does not resolve to either side of the market.
func (m *Market) Outcome(outcomeID string) (Outcome, int) {
	for i, o := range m.Outcomes {
		if o.ID == outcomeID {
			return o, i
		}
	}
	return Outcome{}, -1
}

// MarketSpec carries the user-supplied fields for market creation.
type MarketSpec struct {
	Question    string    `json:"question"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	EndDate     time.Time `json:"endDate"`
	Image       string    `json:"image,omitempty"`
}
