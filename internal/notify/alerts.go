// Package notify delivers market alerts to external channels (Telegram,
// Discord). Delivery is gated by the user's notification preferences: new
// market announcements by the market-alerts toggle, significant price moves
// by the price-changes toggle.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/drolelabs/drole/internal/domain"
)

// priceMoveThreshold is the minimum absolute move of the Yes price since the
// last alert before a price-change notification fires.
const priceMoveThreshold = 0.05

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Prefs returns the user's current notification preferences.
type Prefs func() domain.NotificationPreferences

// Relevant reports whether the user cares about the market (holds a
// position in it or has it on the watchlist).
type Relevant func(marketID string) bool

// Alerts watches market activity and dispatches preference-gated
// notifications to all configured senders.
type Alerts struct {
	senders  []Sender
	prefs    Prefs
	relevant Relevant
	logger   *slog.Logger

	mu        sync.Mutex
	lastPrice map[string]float64
}

// NewAlerts creates an alert service over the given senders. With no
// senders every dispatch is a no-op, so wiring is unconditional.
func NewAlerts(senders []Sender, prefs Prefs, relevant Relevant, logger *slog.Logger) *Alerts {
	return &Alerts{
		senders:   senders,
		prefs:     prefs,
		relevant:  relevant,
		logger:    logger.With(slog.String("component", "alerts")),
		lastPrice: make(map[string]float64),
	}
}

// MarketCreated announces a newly listed market when market alerts are
// enabled.
func (a *Alerts) MarketCreated(ctx context.Context, m domain.Market) {
	if !a.prefs().MarketAlerts {
		return
	}
	a.dispatch(ctx, "New market listed",
		fmt.Sprintf("%s (%s) — Yes at %.0f%%", m.Question, m.Category, m.Outcomes[0].Price*100),
	)
}

// CheckPrices scans the given markets and fires a price-change alert for
// every relevant market whose Yes price moved beyond the threshold since
// the last alert for that market. The first observation of a market only
// seeds the baseline.
func (a *Alerts) CheckPrices(ctx context.Context, markets []domain.Market) {
	if !a.prefs().PriceChanges {
		return
	}

	for _, m := range markets {
		if a.relevant != nil && !a.relevant(m.ID) {
			continue
		}

		price := m.Outcomes[0].Price

		a.mu.Lock()
		last, seen := a.lastPrice[m.ID]
		if !seen || abs(price-last) >= priceMoveThreshold {
			a.lastPrice[m.ID] = price
		}
		a.mu.Unlock()

		if !seen || abs(price-last) < priceMoveThreshold {
			continue
		}

		direction := "up"
		if price < last {
			direction = "down"
		}
		a.dispatch(ctx, "Price alert",
			fmt.Sprintf("%s moved %s: Yes %.0f%% -> %.0f%%", m.Question, direction, last*100, price*100),
		)
	}
}

// dispatch sends to every sender; one failing channel never blocks the
// rest. Errors are logged, not returned, since alerts are fire-and-forget.
func (a *Alerts) dispatch(ctx context.Context, title, message string) {
	var failed []string
	for _, s := range a.senders {
		if err := s.Send(ctx, title, message); err != nil {
			a.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			failed = append(failed, s.Name())
			continue
		}
		a.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(failed) > 0 {
		a.logger.WarnContext(ctx, "partial alert delivery",
			slog.String("failed", strings.Join(failed, ",")),
		)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
