// Package engine executes buy and sell operations against the market store
// and the user ledger as single logical transactions: every precondition is
// validated before the first mutation, so a failed trade leaves balance,
// positions, and market state untouched.
//
// Price impact is intentionally tiny and linear (amount * 1e-5 on buys,
// capped at 0.99). Sells apply no price impact; the asymmetry mirrors the
// source market design and is a simplification, not an oversight.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/drolelabs/drole/internal/bus"
	"github.com/drolelabs/drole/internal/domain"
	"github.com/drolelabs/drole/internal/ledger"
	"github.com/drolelabs/drole/internal/market"
	"github.com/drolelabs/drole/internal/metrics"
)

// ImpactFactor converts a buy's USD notional into a price delta.
const ImpactFactor = 1e-5

// Snapshotter persists state after committed trades. Failures are logged
// and never fail the trade; durability is best-effort.
type Snapshotter interface {
	Save()
}

// Engine coordinates the market store and the user ledger. A single mutex
// serializes trades against simulator ticks so the read-modify-write
// sequence of a trade is never interleaved; the simulator takes the same
// mutex through WithTradeLock.
type Engine struct {
	mu      sync.Mutex
	markets *market.Store
	users   *ledger.Ledger
	bus     *bus.Bus
	snap    Snapshotter
	logger  *slog.Logger
}

// New creates an Engine. snap may be nil when persistence is disabled.
func New(markets *market.Store, users *ledger.Ledger, b *bus.Bus, snap Snapshotter, logger *slog.Logger) *Engine {
	return &Engine{
		markets: markets,
		users:   users,
		bus:     b,
		snap:    snap,
		logger:  logger.With(slog.String("component", "engine")),
	}
}

// TradeResult summarizes a committed trade.
type TradeResult struct {
	MarketID  string          `json:"marketId"`
	OutcomeID string          `json:"outcomeId"`
	Shares    float64         `json:"shares"`
	AmountUSD float64         `json:"amountUsd"`
	Price     float64         `json:"price"` // fill price before impact
	Balance   float64         `json:"balance"`
	Position  domain.Position `json:"position"` // zero-valued after a full sell
}

// Buy spends amountUSD on the given outcome.
//
// Failure modes, each checked before any mutation: ErrNotConnected,
// ErrInvalidAmount, ErrInsufficientBalance, ErrMarketNotFound,
// ErrInvalidOutcome.
func (e *Engine) Buy(marketID, outcomeID string, amountUSD float64) (TradeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.users.Connected() {
		return e.fail("buy", domain.ErrNotConnected)
	}
	if amountUSD <= 0 {
		return e.fail("buy", fmt.Errorf("engine: amount must be positive: %w", domain.ErrInvalidAmount))
	}
	if amountUSD > e.users.Balance() {
		return e.fail("buy", domain.ErrInsufficientBalance)
	}

	m, err := e.markets.Get(marketID)
	if err != nil {
		return e.fail("buy", domain.ErrMarketNotFound)
	}
	outcome, idx := m.Outcome(outcomeID)
	if idx < 0 {
		return e.fail("buy", domain.ErrInvalidOutcome)
	}

	// The clamp invariant guarantees outcome.Price >= MinPrice > 0.
	sharesBought := amountUSD / outcome.Price

	// All preconditions hold; the in-memory mutations below cannot fail.
	if err := e.users.ApplyBuy(marketID, outcomeID, amountUSD, sharesBought, outcome.Price); err != nil {
		return e.fail("buy", err)
	}

	impact := amountUSD * ImpactFactor
	newPrice := outcome.Price + impact
	if err := e.markets.ApplyPriceDelta(marketID, idx, newPrice, amountUSD); err != nil {
		return e.fail("buy", err)
	}

	pos, _ := e.users.Position(marketID, outcomeID)
	res := TradeResult{
		MarketID:  marketID,
		OutcomeID: outcomeID,
		Shares:    sharesBought,
		AmountUSD: amountUSD,
		Price:     outcome.Price,
		Balance:   e.users.Balance(),
		Position:  pos,
	}

	e.logger.Info("buy executed",
		slog.String("market_id", marketID),
		slog.String("outcome_id", outcomeID),
		slog.Float64("amount_usd", amountUSD),
		slog.Float64("shares", sharesBought),
		slog.Float64("fill_price", outcome.Price),
	)
	metrics.TradesTotal.WithLabelValues("buy").Inc()

	e.commit()
	return res, nil
}

// Sell liquidates percent (in (0,1]) of the position on the given outcome
// at the current market price. Selling moves no market price and leaves the
// remainder's average cost unchanged; a remainder below the epsilon
// threshold removes the position entirely.
//
// Failure modes: ErrNotConnected, ErrInvalidSellPercent, ErrNoPosition,
// ErrMarketNotFound, ErrInvalidOutcome.
func (e *Engine) Sell(marketID, outcomeID string, percent float64) (TradeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.users.Connected() {
		return e.fail("sell", domain.ErrNotConnected)
	}
	if percent <= 0 || percent > 1 {
		return e.fail("sell", domain.ErrInvalidSellPercent)
	}

	pos, err := e.users.Position(marketID, outcomeID)
	if err != nil {
		return e.fail("sell", domain.ErrNoPosition)
	}

	m, err := e.markets.Get(marketID)
	if err != nil {
		return e.fail("sell", domain.ErrMarketNotFound)
	}
	outcome, idx := m.Outcome(outcomeID)
	if idx < 0 {
		return e.fail("sell", domain.ErrInvalidOutcome)
	}

	sharesToSell := pos.Shares * percent
	returnAmount := sharesToSell * outcome.Price

	if err := e.users.ApplySell(marketID, outcomeID, sharesToSell, returnAmount, outcome.Price); err != nil {
		return e.fail("sell", err)
	}

	remaining, _ := e.users.Position(marketID, outcomeID)
	res := TradeResult{
		MarketID:  marketID,
		OutcomeID: outcomeID,
		Shares:    sharesToSell,
		AmountUSD: returnAmount,
		Price:     outcome.Price,
		Balance:   e.users.Balance(),
		Position:  remaining,
	}

	e.logger.Info("sell executed",
		slog.String("market_id", marketID),
		slog.String("outcome_id", outcomeID),
		slog.Float64("percent", percent),
		slog.Float64("shares", sharesToSell),
		slog.Float64("return_usd", returnAmount),
	)
	metrics.TradesTotal.WithLabelValues("sell").Inc()

	e.commit()
	return res, nil
}

// WithTradeLock runs fn while holding the mutex that serializes trades.
// Every writer that reads market state and writes back an absolute price
// must go through it, or a concurrent trade's update can be silently
// overwritten; the simulator routes each tick through here.
func (e *Engine) WithTradeLock(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Portfolio returns the user's positions with CurrentValue marked to the
// latest market prices.
func (e *Engine) Portfolio() []domain.Position {
	return e.users.ValueAt(func(marketID, outcomeID string) (float64, bool) {
		m, err := e.markets.Get(marketID)
		if err != nil {
			return 0, false
		}
		o, idx := m.Outcome(outcomeID)
		if idx < 0 {
			return 0, false
		}
		return o.Price, true
	})
}

// commit runs the post-mutation sequence: notify subscribers, then persist.
func (e *Engine) commit() {
	e.bus.Notify(bus.TopicMarkets)
	e.bus.Notify(bus.TopicUser)
	if e.snap != nil {
		e.snap.Save()
	}
}

func (e *Engine) fail(op string, err error) (TradeResult, error) {
	metrics.TradeFailures.WithLabelValues(op).Inc()
	return TradeResult{}, err
}
