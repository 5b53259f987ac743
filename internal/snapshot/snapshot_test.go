package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/drolelabs/drole/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memKV is an in-memory KVStore for tests.
type memKV struct {
	data    map[string][]byte
	failSet bool
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("mem: get %q: %w", key, domain.ErrNotFound)
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	if m.failSet {
		return errors.New("mem: write failed")
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Close() error { return nil }

func testState() State {
	addr := "0x71C...9A21"
	return State{
		User: &domain.User{
			Address: &addr,
			Balance: 850,
			Positions: []domain.Position{
				{MarketID: "m1", OutcomeID: "YES", Shares: 250, AvgPrice: 0.4},
			},
			NotificationPreferences: domain.NotificationPreferences{MarketAlerts: true},
		},
		Markets: []domain.Market{{ID: "m1", Question: "q?", Category: domain.CategoryCrypto}},
		Comments: map[string][]domain.Comment{
			"m1": {{ID: "c1", Author: "A", Text: "hi"}},
		},
		Watchlist: []string{"m1"},
	}
}

func TestService_SaveLoad_RoundTrip(t *testing.T) {
	kv := newMemKV()
	want := testState()
	svc := NewService(kv, func() State { return want }, testLogger())

	svc.Save()

	for _, key := range []string{KeyUser, KeyMarkets, KeyComments, KeyWatchlist} {
		if _, ok := kv.data[key]; !ok {
			t.Errorf("key %q not written", key)
		}
	}

	got := NewService(kv, nil, testLogger()).Load(context.Background())
	if got.User == nil {
		t.Fatal("loaded user is nil")
	}
	if got.User.Balance != 850 || len(got.User.Positions) != 1 {
		t.Errorf("loaded user = %+v", got.User)
	}
	if len(got.Markets) != 1 || got.Markets[0].ID != "m1" {
		t.Errorf("loaded markets = %v", got.Markets)
	}
	if len(got.Comments["m1"]) != 1 {
		t.Errorf("loaded comments = %v", got.Comments)
	}
	if len(got.Watchlist) != 1 || got.Watchlist[0] != "m1" {
		t.Errorf("loaded watchlist = %v", got.Watchlist)
	}
}

func TestService_Load_EmptyBackend(t *testing.T) {
	got := NewService(newMemKV(), nil, testLogger()).Load(context.Background())

	// An absent user is nil, not a zero user; the caller keeps defaults.
	if got.User != nil {
		t.Errorf("user = %+v, want nil for absent key", got.User)
	}
	if got.Markets != nil || got.Comments != nil || got.Watchlist != nil {
		t.Errorf("state = %+v, want all-zero for empty backend", got)
	}
}

func TestService_Load_CorruptDocumentDegrades(t *testing.T) {
	kv := newMemKV()
	want := testState()
	svc := NewService(kv, func() State { return want }, testLogger())
	svc.Save()

	// Corrupt only the markets document; everything else must survive.
	kv.data[KeyMarkets] = []byte("{not json")

	got := NewService(kv, nil, testLogger()).Load(context.Background())
	if got.Markets != nil {
		t.Errorf("markets = %v, want nil for corrupt document", got.Markets)
	}
	if got.User == nil || got.User.Balance != 850 {
		t.Errorf("user = %+v, want intact despite corrupt sibling", got.User)
	}
	if len(got.Watchlist) != 1 {
		t.Errorf("watchlist = %v, want intact", got.Watchlist)
	}
}

func TestService_Save_BackendFailureIsSwallowed(t *testing.T) {
	kv := newMemKV()
	kv.failSet = true
	svc := NewService(kv, func() State { return testState() }, testLogger())

	// Save must not panic or surface the error; in-memory state stays
	// authoritative.
	svc.Save()
}
