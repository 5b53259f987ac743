// Package ledger implements the single-user trading ledger: session
// address, USD balance, open positions, and notification preferences. The
// ledger owns the User exclusively; the trade engine mutates balance and
// positions only through the mutators here.
//
// Disconnecting clears only the session address. Balance and positions
// survive disconnect/reconnect, modeling a persistent local wallet rather
// than account deletion.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/drolelabs/drole/internal/domain"
)

// StartingBalance is seeded on first connect, and only when the current
// balance is zero; reconnecting never resets an existing balance.
const StartingBalance = 1000.00

// MockAddress is the deterministic fallback session address used when the
// wallet provider is unavailable or errors.
const MockAddress = "0x71C...9A21"

// Ledger holds the local user. Safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	user     domain.User
	provider domain.AddressProvider
	logger   *slog.Logger
}

// New creates a Ledger for a disconnected user with the given initial
// state. provider may be nil, in which case Connect always resolves to
// MockAddress.
func New(initial domain.User, provider domain.AddressProvider, logger *slog.Logger) *Ledger {
	return &Ledger{
		user:     initial,
		provider: provider,
		logger:   logger.With(slog.String("component", "ledger")),
	}
}

// DefaultUser returns the state of a fresh, never-connected user.
func DefaultUser() domain.User {
	return domain.User{
		Balance:   0,
		Positions: []domain.Position{},
		NotificationPreferences: domain.NotificationPreferences{
			MarketAlerts: true,
			PriceChanges: false,
		},
	}
}

// User returns a snapshot of the current user state.
func (l *Ledger) User() domain.User {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyUser(&l.user)
}

// Connect performs the simulated wallet handshake and returns the updated
// user. The provider call (and its simulated delay) happens outside the
// ledger lock so reads are never blocked by a pending handshake. Provider
// failures degrade silently to MockAddress.
func (l *Ledger) Connect(ctx context.Context) (domain.User, error) {
	addr := MockAddress
	if l.provider != nil {
		resolved, err := l.provider.Address(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return domain.User{}, fmt.Errorf("ledger: connect: %w", ctx.Err())
		case err != nil:
			l.logger.WarnContext(ctx, "wallet provider failed, using mock address",
				slog.String("error", err.Error()),
			)
		default:
			addr = resolved
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.user.Address = &addr
	if l.user.Balance == 0 {
		l.user.Balance = StartingBalance
	}
	return copyUser(&l.user), nil
}

// Disconnect clears the session address. Balance and positions are
// preserved. Idempotent.
func (l *Ledger) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.user.Address = nil
}

// SetNotificationPreference toggles a single preference flag. Unknown keys
// return ErrNotFound.
func (l *Ledger) SetNotificationPreference(key string, value bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch key {
	case domain.PrefMarketAlerts:
		l.user.NotificationPreferences.MarketAlerts = value
	case domain.PrefPriceChanges:
		l.user.NotificationPreferences.PriceChanges = value
	default:
		return fmt.Errorf("ledger: unknown preference %q: %w", key, domain.ErrNotFound)
	}
	return nil
}

// Preferences returns the current notification preferences.
func (l *Ledger) Preferences() domain.NotificationPreferences {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.user.NotificationPreferences
}

// Connected reports whether a session address is present.
func (l *Ledger) Connected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.user.Connected()
}

// Balance returns the current balance.
func (l *Ledger) Balance() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.user.Balance
}

// Position returns the position for the (market, outcome) pair.
func (l *Ledger) Position(marketID, outcomeID string) (domain.Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.user.Positions {
		if p.MarketID == marketID && p.OutcomeID == outcomeID {
			return p, nil
		}
	}
	return domain.Position{}, domain.ErrNoPosition
}

// ApplyBuy debits amountUSD and upserts the position for the pair using
// volume-weighted average cost. The caller (trade engine) has already
// validated the preconditions; ApplyBuy re-checks the balance as a final
// guard so the ledger can never go negative.
func (l *Ledger) ApplyBuy(marketID, outcomeID string, amountUSD, sharesBought, outcomePrice float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amountUSD > l.user.Balance {
		return domain.ErrInsufficientBalance
	}
	l.user.Balance -= amountUSD

	for i := range l.user.Positions {
		p := &l.user.Positions[i]
		if p.MarketID != marketID || p.OutcomeID != outcomeID {
			continue
		}
		totalCost := p.Shares*p.AvgPrice + amountUSD
		p.Shares += sharesBought
		p.AvgPrice = totalCost / p.Shares
		p.CurrentValue = p.Shares * outcomePrice
		return nil
	}

	l.user.Positions = append(l.user.Positions, domain.Position{
		MarketID:     marketID,
		OutcomeID:    outcomeID,
		Shares:       sharesBought,
		AvgPrice:     outcomePrice,
		CurrentValue: sharesBought * outcomePrice,
	})
	return nil
}

// ApplySell credits returnAmount and reduces the position by sharesSold,
// removing it entirely when the remainder falls below PositionEpsilon.
// AvgPrice is left unchanged: selling does not alter the cost basis of the
// remainder.
func (l *Ledger) ApplySell(marketID, outcomeID string, sharesSold, returnAmount, outcomePrice float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.user.Positions {
		p := &l.user.Positions[i]
		if p.MarketID != marketID || p.OutcomeID != outcomeID {
			continue
		}

		l.user.Balance += returnAmount
		remaining := p.Shares - sharesSold
		if remaining < domain.PositionEpsilon {
			l.user.Positions = append(l.user.Positions[:i], l.user.Positions[i+1:]...)
			return nil
		}
		p.Shares = remaining
		p.CurrentValue = remaining * outcomePrice
		return nil
	}
	return domain.ErrNoPosition
}

// Export returns a deep copy of the user for snapshotting.
func (l *Ledger) Export() domain.User {
	return l.User()
}

// Restore replaces the ledger state with the given user.
func (l *Ledger) Restore(u domain.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.user = copyUser(&u)
	if l.user.Positions == nil {
		l.user.Positions = []domain.Position{}
	}
}

func copyUser(u *domain.User) domain.User {
	out := *u
	if u.Address != nil {
		addr := *u.Address
		out.Address = &addr
	}
	out.Positions = append([]domain.Position(nil), u.Positions...)
	return out
}

// ValueAt recomputes CurrentValue for every position from the given price
// lookup, for portfolio reads. Pairs whose market no longer resolves keep
// their last computed value.
func (l *Ledger) ValueAt(priceOf func(marketID, outcomeID string) (float64, bool)) []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Position, 0, len(l.user.Positions))
	for _, p := range l.user.Positions {
		if price, ok := priceOf(p.MarketID, p.OutcomeID); ok {
			p.CurrentValue = p.Shares * price
		}
		out = append(out, p)
	}
	return out
}
