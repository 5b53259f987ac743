// Package market implements the authoritative in-memory market store. It
// owns every Market exclusively; the trade engine and the price simulator
// mutate markets only through ApplyPriceDelta, which enforces the binary
// price invariant and the bounded history.
package market

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drolelabs/drole/internal/domain"
)

// Price bounds for any quoted probability. ApplyPriceDelta clamps into this
// range rather than rejecting out-of-range prices.
const (
	MinPrice = 0.01
	MaxPrice = 0.99
)

// Store holds the market list, most-recent-first. Reads return deep copies;
// callers never observe or mutate internal state directly.
type Store struct {
	mu      sync.RWMutex
	markets []*domain.Market
	now     func() time.Time
}

// NewStore creates a Store containing the given initial markets. Pass
// Seed() for the demo catalog or the result of a snapshot restore.
func NewStore(initial []domain.Market) *Store {
	s := &Store{now: func() time.Time { return time.Now().UTC() }}
	s.Restore(initial)
	return s
}

// SetClock overrides the store clock. Test helper.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// List returns a snapshot of all markets, most-recent-first.
func (s *Store) List() []domain.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, copyMarket(m))
	}
	return out
}

// ListByCategory returns the subset of markets in the given category,
// preserving the most-recent-first ordering.
func (s *Store) ListByCategory(c domain.Category) []domain.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Market
	for _, m := range s.markets {
		if m.Category == c {
			out = append(out, copyMarket(m))
		}
	}
	return out
}

// Get returns the market with the given ID.
func (s *Store) Get(id string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.find(id)
	if m == nil {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return copyMarket(m), nil
}

// Create validates the spec and inserts a new market at the front of the
// list with both outcome prices at 0.5, zero volume, and a single seed
// history point. It returns the new market's ID.
func (s *Store) Create(spec domain.MarketSpec) (string, error) {
	if strings.TrimSpace(spec.Question) == "" {
		return "", fmt.Errorf("market: question must not be empty: %w", domain.ErrInvalidMarketSpec)
	}
	if strings.TrimSpace(spec.Description) == "" {
		return "", fmt.Errorf("market: description must not be empty: %w", domain.ErrInvalidMarketSpec)
	}
	if !domain.ValidCategory(spec.Category) {
		return "", fmt.Errorf("market: unknown category %q: %w", spec.Category, domain.ErrInvalidMarketSpec)
	}
	if spec.EndDate.IsZero() {
		return "", fmt.Errorf("market: end date is required: %w", domain.ErrInvalidMarketSpec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	m := &domain.Market{
		ID:          uuid.New().String(),
		Question:    spec.Question,
		Description: spec.Description,
		Image:       spec.Image,
		Category:    spec.Category,
		Volume:      0,
		EndDate:     spec.EndDate,
		Outcomes: [2]domain.Outcome{
			{ID: "YES", Name: "Yes", Price: 0.5},
			{ID: "NO", Name: "No", Price: 0.5},
		},
		History:   []domain.HistoryPoint{{Timestamp: now, Price: 0.5}},
		CreatedAt: now,
	}

	s.markets = append([]*domain.Market{m}, s.markets...)
	return m.ID, nil
}

// ApplyPriceDelta sets the price of the outcome at outcomeIndex to newPrice
// clamped into [MinPrice, MaxPrice], forces the paired outcome to 1-p,
// appends a history point for the first outcome, truncates history to the
// most recent MaxHistoryPoints, and adds volumeDelta (ignored when
// negative) to the cumulative volume.
func (s *Store) ApplyPriceDelta(marketID string, outcomeIndex int, newPrice, volumeDelta float64) error {
	if outcomeIndex < 0 || outcomeIndex > 1 {
		return fmt.Errorf("market: outcome index %d out of range: %w", outcomeIndex, domain.ErrInvalidOutcome)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.find(marketID)
	if m == nil {
		return domain.ErrMarketNotFound
	}

	p := Clamp(newPrice)
	m.Outcomes[outcomeIndex].Price = p
	m.Outcomes[1-outcomeIndex].Price = 1 - p

	m.History = append(m.History, domain.HistoryPoint{
		Timestamp: s.now(),
		Price:     m.Outcomes[0].Price,
	})
	if n := len(m.History); n > domain.MaxHistoryPoints {
		m.History = append(m.History[:0:0], m.History[n-domain.MaxHistoryPoints:]...)
	}

	if volumeDelta > 0 {
		m.Volume += volumeDelta
	}
	return nil
}

// Count returns the number of markets.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markets)
}

// Export returns a deep copy of the full market list for snapshotting.
func (s *Store) Export() []domain.Market {
	return s.List()
}

// Restore replaces the store contents with the given markets, normalizing
// ordering to most-recent-first by creation time for stability across
// snapshot round trips.
func (s *Store) Restore(markets []domain.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markets = make([]*domain.Market, 0, len(markets))
	for i := range markets {
		m := copyMarket(&markets[i])
		s.markets = append(s.markets, &m)
	}
	sort.SliceStable(s.markets, func(i, j int) bool {
		return s.markets[i].CreatedAt.After(s.markets[j].CreatedAt)
	})
}

// Clamp bounds a quoted probability into [MinPrice, MaxPrice].
func Clamp(p float64) float64 {
	if p < MinPrice {
		return MinPrice
	}
	if p > MaxPrice {
		return MaxPrice
	}
	return p
}

// find returns the stored market pointer, or nil. Caller must hold the lock.
func (s *Store) find(id string) *domain.Market {
	for _, m := range s.markets {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func copyMarket(m *domain.Market) domain.Market {
	out := *m
	out.History = append([]domain.HistoryPoint(nil), m.History...)
	return out
}
