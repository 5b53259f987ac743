package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/drolelabs/drole/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubProvider struct {
	addr string
	err  error
}

func (p *stubProvider) Address(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.addr, p.err
}

func TestLedger_Connect_SeedsStartingBalance(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())

	u, err := l.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if u.Address == nil || *u.Address != MockAddress {
		t.Errorf("address = %v, want %q", u.Address, MockAddress)
	}
	if u.Balance != StartingBalance {
		t.Errorf("balance = %v, want %v", u.Balance, StartingBalance)
	}
}

func TestLedger_Reconnect_PreservesBalance(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())

	if _, err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := l.ApplyBuy("m1", "YES", 400, 1000, 0.4); err != nil {
		t.Fatalf("ApplyBuy() error = %v", err)
	}

	l.Disconnect()
	if l.Connected() {
		t.Error("Connected() = true after Disconnect()")
	}

	u, err := l.Connect(context.Background())
	if err != nil {
		t.Fatalf("reconnect error = %v", err)
	}
	if u.Balance != StartingBalance-400 {
		t.Errorf("balance after reconnect = %v, want %v", u.Balance, StartingBalance-400)
	}
	if len(u.Positions) != 1 {
		t.Errorf("positions after reconnect = %d, want 1", len(u.Positions))
	}
}

func TestLedger_Connect_ProviderAddress(t *testing.T) {
	l := New(DefaultUser(), &stubProvider{addr: "0x71C...9A21"}, testLogger())

	u, err := l.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if u.Address == nil || *u.Address != "0x71C...9A21" {
		t.Errorf("address = %v, want provider address", u.Address)
	}
}

func TestLedger_Connect_ProviderFailureFallsBack(t *testing.T) {
	l := New(DefaultUser(), &stubProvider{err: errors.New("boom")}, testLogger())

	u, err := l.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if u.Address == nil || *u.Address != MockAddress {
		t.Errorf("address = %v, want fallback %q", u.Address, MockAddress)
	}
}

func TestLedger_Connect_Cancelled(t *testing.T) {
	l := New(DefaultUser(), &stubProvider{addr: "x"}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.Connect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() error = %v, want context.Canceled", err)
	}
	if l.Connected() {
		t.Error("Connected() = true after cancelled connect")
	}
}

func TestLedger_Disconnect_Idempotent(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())
	l.Disconnect()
	l.Disconnect()
	if l.Connected() {
		t.Error("Connected() = true, want false")
	}
}

func TestLedger_ApplyBuy_WeightedAverage(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())
	if _, err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// 100 USD at 0.50 -> 200 shares, then 100 USD at 0.25 -> 400 shares.
	if err := l.ApplyBuy("m1", "YES", 100, 200, 0.50); err != nil {
		t.Fatalf("first ApplyBuy() error = %v", err)
	}
	if err := l.ApplyBuy("m1", "YES", 100, 400, 0.25); err != nil {
		t.Fatalf("second ApplyBuy() error = %v", err)
	}

	p, err := l.Position("m1", "YES")
	if err != nil {
		t.Fatalf("Position() error = %v", err)
	}
	if p.Shares != 600 {
		t.Errorf("shares = %v, want 600", p.Shares)
	}
	// 200 USD total cost over 600 shares.
	if want := 200.0 / 600.0; math.Abs(p.AvgPrice-want) > 1e-12 {
		t.Errorf("avg price = %v, want %v", p.AvgPrice, want)
	}
	if l.Balance() != StartingBalance-200 {
		t.Errorf("balance = %v, want %v", l.Balance(), StartingBalance-200)
	}
}

func TestLedger_ApplyBuy_InsufficientBalance(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())
	if _, err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := l.ApplyBuy("m1", "YES", StartingBalance+1, 10, 0.5); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("ApplyBuy() error = %v, want ErrInsufficientBalance", err)
	}
	if l.Balance() != StartingBalance {
		t.Errorf("balance = %v, want untouched %v", l.Balance(), StartingBalance)
	}
}

func TestLedger_ApplySell_PreservesAvgPrice(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())
	if _, err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := l.ApplyBuy("m1", "YES", 100, 200, 0.50); err != nil {
		t.Fatalf("ApplyBuy() error = %v", err)
	}

	// Sell half at a higher price.
	if err := l.ApplySell("m1", "YES", 100, 60, 0.60); err != nil {
		t.Fatalf("ApplySell() error = %v", err)
	}

	p, err := l.Position("m1", "YES")
	if err != nil {
		t.Fatalf("Position() error = %v", err)
	}
	if p.Shares != 100 {
		t.Errorf("shares = %v, want 100", p.Shares)
	}
	if p.AvgPrice != 0.50 {
		t.Errorf("avg price = %v, want unchanged 0.50", p.AvgPrice)
	}
	if want := StartingBalance - 100 + 60; l.Balance() != want {
		t.Errorf("balance = %v, want %v", l.Balance(), want)
	}
}

func TestLedger_ApplySell_RemovesDustPosition(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())
	if _, err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := l.ApplyBuy("m1", "YES", 100, 200, 0.50); err != nil {
		t.Fatalf("ApplyBuy() error = %v", err)
	}

	// Leave a remainder below the epsilon threshold.
	if err := l.ApplySell("m1", "YES", 200-domain.PositionEpsilon/2, 100, 0.50); err != nil {
		t.Fatalf("ApplySell() error = %v", err)
	}

	if _, err := l.Position("m1", "YES"); !errors.Is(err, domain.ErrNoPosition) {
		t.Errorf("Position() error = %v, want ErrNoPosition", err)
	}
}

func TestLedger_ApplySell_NoPosition(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())
	if err := l.ApplySell("m1", "YES", 1, 1, 0.5); !errors.Is(err, domain.ErrNoPosition) {
		t.Errorf("ApplySell() error = %v, want ErrNoPosition", err)
	}
}

func TestLedger_SetNotificationPreference(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())

	if err := l.SetNotificationPreference(domain.PrefPriceChanges, true); err != nil {
		t.Fatalf("SetNotificationPreference() error = %v", err)
	}
	if !l.Preferences().PriceChanges {
		t.Error("PriceChanges = false, want true")
	}

	if err := l.SetNotificationPreference("unknown", true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown key error = %v, want ErrNotFound", err)
	}
}

func TestLedger_Restore(t *testing.T) {
	addr := "0xabc"
	l := New(DefaultUser(), nil, testLogger())
	l.Restore(domain.User{
		Address: &addr,
		Balance: 750,
		Positions: []domain.Position{
			{MarketID: "m1", OutcomeID: "YES", Shares: 10, AvgPrice: 0.4},
		},
	})

	u := l.User()
	if u.Balance != 750 || len(u.Positions) != 1 || !u.Connected() {
		t.Errorf("restored user = %+v", u)
	}
}

func TestLedger_ValueAt(t *testing.T) {
	l := New(DefaultUser(), nil, testLogger())
	if _, err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := l.ApplyBuy("m1", "YES", 100, 200, 0.50); err != nil {
		t.Fatalf("ApplyBuy() error = %v", err)
	}

	got := l.ValueAt(func(marketID, outcomeID string) (float64, bool) {
		return 0.75, true
	})
	if len(got) != 1 {
		t.Fatalf("ValueAt() returned %d positions, want 1", len(got))
	}
	if got[0].CurrentValue != 150 {
		t.Errorf("current value = %v, want 150", got[0].CurrentValue)
	}
}
