package domain

// PositionEpsilon is the share threshold below which a position is removed
// rather than left as float noise.
const PositionEpsilon = 1e-4

// Position is a user's holding in one (market, outcome) pair. At most one
// Position exists per pair. AvgPrice is the volume-weighted average entry
// price and is unchanged by partial sells.
type Position struct {
	MarketID  string  `json:"marketId"`
	OutcomeID string  `json:"outcomeId"`
	Shares    float64 `json:"shares"`
	AvgPrice  float64 `json:"avgPrice"`
	// CurrentValue is Shares * current outcome price, recomputed on read.
	CurrentValue float64 `json:"currentValue"`
}

// NotificationPreferences holds the user's alert toggles.
type NotificationPreferences struct {
	MarketAlerts bool `json:"marketAlerts"`
	PriceChanges bool `json:"priceChanges"`
}

// Notification preference keys accepted by SetNotificationPreference.
const (
	PrefMarketAlerts = "marketAlerts"
	PrefPriceChanges = "priceChanges"
)

// User is the single local trading session. A nil Address means
// disconnected; disconnecting clears only the address, balance and positions
// model a persistent local wallet.
type User struct {
	Address                 *string                 `json:"address"`
	Balance                 float64                 `json:"balance"`
	Positions               []Position              `json:"positions"`
	NotificationPreferences NotificationPreferences `json:"notificationPreferences"`
}

// Connected reports whether a session address is present.
func (u *User) Connected() bool {
	return u.Address != nil
}
