package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/drolelabs/drole/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingSender) Send(_ context.Context, title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, title+": "+message)
	return nil
}

func (r *recordingSender) Name() string { return "recording" }

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func prefs(marketAlerts, priceChanges bool) Prefs {
	return func() domain.NotificationPreferences {
		return domain.NotificationPreferences{
			MarketAlerts: marketAlerts,
			PriceChanges: priceChanges,
		}
	}
}

func testMarket(id string, yesPrice float64) domain.Market {
	return domain.Market{
		ID:       id,
		Question: "Will it happen?",
		Category: domain.CategorySports,
		EndDate:  time.Now().UTC().AddDate(0, 1, 0),
		Outcomes: [2]domain.Outcome{
			{ID: "YES", Name: "Yes", Price: yesPrice},
			{ID: "NO", Name: "No", Price: 1 - yesPrice},
		},
	}
}

func TestAlerts_MarketCreated_GatedByPreference(t *testing.T) {
	s := &recordingSender{}

	on := NewAlerts([]Sender{s}, prefs(true, false), nil, testLogger())
	on.MarketCreated(context.Background(), testMarket("m1", 0.5))
	if s.count() != 1 {
		t.Errorf("sent = %d, want 1 with market alerts on", s.count())
	}

	off := NewAlerts([]Sender{s}, prefs(false, false), nil, testLogger())
	off.MarketCreated(context.Background(), testMarket("m2", 0.5))
	if s.count() != 1 {
		t.Errorf("sent = %d, want unchanged with market alerts off", s.count())
	}
}

func TestAlerts_CheckPrices(t *testing.T) {
	s := &recordingSender{}
	a := NewAlerts([]Sender{s}, prefs(false, true), nil, testLogger())
	ctx := context.Background()

	// First observation seeds the baseline without alerting.
	a.CheckPrices(ctx, []domain.Market{testMarket("m1", 0.50)})
	if s.count() != 0 {
		t.Fatalf("sent = %d on baseline seed, want 0", s.count())
	}

	// A sub-threshold move stays quiet.
	a.CheckPrices(ctx, []domain.Market{testMarket("m1", 0.52)})
	if s.count() != 0 {
		t.Fatalf("sent = %d on 2%% move, want 0", s.count())
	}

	// A move past the threshold fires and resets the baseline.
	a.CheckPrices(ctx, []domain.Market{testMarket("m1", 0.58)})
	if s.count() != 1 {
		t.Fatalf("sent = %d on 8%% move, want 1", s.count())
	}

	// The same price again does not re-fire.
	a.CheckPrices(ctx, []domain.Market{testMarket("m1", 0.58)})
	if s.count() != 1 {
		t.Errorf("sent = %d after repeat price, want 1", s.count())
	}
}

func TestAlerts_CheckPrices_GatedByPreference(t *testing.T) {
	s := &recordingSender{}
	a := NewAlerts([]Sender{s}, prefs(true, false), nil, testLogger())
	ctx := context.Background()

	a.CheckPrices(ctx, []domain.Market{testMarket("m1", 0.50)})
	a.CheckPrices(ctx, []domain.Market{testMarket("m1", 0.90)})
	if s.count() != 0 {
		t.Errorf("sent = %d with price changes off, want 0", s.count())
	}
}

func TestAlerts_CheckPrices_RelevanceFilter(t *testing.T) {
	s := &recordingSender{}
	relevant := func(marketID string) bool { return marketID == "watched" }
	a := NewAlerts([]Sender{s}, prefs(false, true), relevant, testLogger())
	ctx := context.Background()

	markets := []domain.Market{
		testMarket("watched", 0.50),
		testMarket("ignored", 0.50),
	}
	a.CheckPrices(ctx, markets)

	markets[0] = testMarket("watched", 0.70)
	markets[1] = testMarket("ignored", 0.70)
	a.CheckPrices(ctx, markets)

	if s.count() != 1 {
		t.Errorf("sent = %d, want 1 alert for the watched market only", s.count())
	}
}

func TestAlerts_NoSenders(t *testing.T) {
	a := NewAlerts(nil, prefs(true, true), nil, testLogger())
	ctx := context.Background()

	// Dispatch with no channels configured is a quiet no-op.
	a.MarketCreated(ctx, testMarket("m1", 0.5))
	a.CheckPrices(ctx, []domain.Market{testMarket("m1", 0.5)})
	a.CheckPrices(ctx, []domain.Market{testMarket("m1", 0.9)})
}
