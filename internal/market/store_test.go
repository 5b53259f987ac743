package market

import (
	"errors"
	"testing"
	"time"

	"github.com/drolelabs/drole/internal/domain"
)

func testMarket(id string, yesPrice float64) domain.Market {
	now := time.Now().UTC()
	return domain.Market{
		ID:          id,
		Question:    "Will it rain tomorrow?",
		Description: "Resolves Yes on measurable precipitation.",
		Category:    domain.CategoryPopCulture,
		Volume:      100,
		EndDate:     now.AddDate(0, 1, 0),
		Outcomes: [2]domain.Outcome{
			{ID: "YES", Name: "Yes", Price: yesPrice},
			{ID: "NO", Name: "No", Price: 1 - yesPrice},
		},
		History:   []domain.HistoryPoint{{Timestamp: now, Price: yesPrice}},
		CreatedAt: now,
	}
}

func TestStore_ApplyPriceDelta_PairedPrices(t *testing.T) {
	s := NewStore([]domain.Market{testMarket("m1", 0.40)})

	if err := s.ApplyPriceDelta("m1", 0, 0.55, 0); err != nil {
		t.Fatalf("ApplyPriceDelta() error = %v", err)
	}

	m, err := s.Get("m1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if m.Outcomes[0].Price != 0.55 {
		t.Errorf("yes price = %v, want 0.55", m.Outcomes[0].Price)
	}
	if m.Outcomes[1].Price != 0.45 {
		t.Errorf("no price = %v, want 0.45", m.Outcomes[1].Price)
	}
	if sum := m.Outcomes[0].Price + m.Outcomes[1].Price; sum != 1 {
		t.Errorf("price sum = %v, want 1", sum)
	}
}

func TestStore_ApplyPriceDelta_Clamp(t *testing.T) {
	tests := []struct {
		name     string
		newPrice float64
		want     float64
	}{
		{"above max", 1.30, MaxPrice},
		{"below min", -0.20, MinPrice},
		{"in range", 0.62, 0.62},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore([]domain.Market{testMarket("m1", 0.50)})
			if err := s.ApplyPriceDelta("m1", 0, tt.newPrice, 0); err != nil {
				t.Fatalf("ApplyPriceDelta() error = %v", err)
			}
			m, _ := s.Get("m1")
			if m.Outcomes[0].Price != tt.want {
				t.Errorf("price = %v, want %v", m.Outcomes[0].Price, tt.want)
			}
		})
	}
}

func TestStore_ApplyPriceDelta_SecondOutcome(t *testing.T) {
	s := NewStore([]domain.Market{testMarket("m1", 0.40)})

	if err := s.ApplyPriceDelta("m1", 1, 0.70, 0); err != nil {
		t.Fatalf("ApplyPriceDelta() error = %v", err)
	}

	m, _ := s.Get("m1")
	if m.Outcomes[1].Price != 0.70 {
		t.Errorf("no price = %v, want 0.70", m.Outcomes[1].Price)
	}
	if m.Outcomes[0].Price != 0.30 {
		t.Errorf("yes price = %v, want 0.30", m.Outcomes[0].Price)
	}
	// History always samples the first outcome.
	last := m.History[len(m.History)-1]
	if last.Price != 0.30 {
		t.Errorf("last history price = %v, want 0.30", last.Price)
	}
}

func TestStore_ApplyPriceDelta_HistoryBound(t *testing.T) {
	s := NewStore([]domain.Market{testMarket("m1", 0.50)})

	for i := 0; i < domain.MaxHistoryPoints+25; i++ {
		if err := s.ApplyPriceDelta("m1", 0, 0.50, 0); err != nil {
			t.Fatalf("ApplyPriceDelta() error = %v", err)
		}
	}

	m, _ := s.Get("m1")
	if len(m.History) != domain.MaxHistoryPoints {
		t.Errorf("history length = %d, want %d", len(m.History), domain.MaxHistoryPoints)
	}
}

func TestStore_ApplyPriceDelta_Volume(t *testing.T) {
	s := NewStore([]domain.Market{testMarket("m1", 0.50)})

	if err := s.ApplyPriceDelta("m1", 0, 0.51, 250); err != nil {
		t.Fatalf("ApplyPriceDelta() error = %v", err)
	}
	// Negative volume deltas are ignored, never subtracted.
	if err := s.ApplyPriceDelta("m1", 0, 0.52, -500); err != nil {
		t.Fatalf("ApplyPriceDelta() error = %v", err)
	}

	m, _ := s.Get("m1")
	if m.Volume != 350 {
		t.Errorf("volume = %v, want 350", m.Volume)
	}
}

func TestStore_ApplyPriceDelta_Errors(t *testing.T) {
	s := NewStore([]domain.Market{testMarket("m1", 0.50)})

	if err := s.ApplyPriceDelta("missing", 0, 0.5, 0); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("unknown market error = %v, want ErrMarketNotFound", err)
	}
	if err := s.ApplyPriceDelta("m1", 2, 0.5, 0); !errors.Is(err, domain.ErrInvalidOutcome) {
		t.Errorf("bad index error = %v, want ErrInvalidOutcome", err)
	}
}

func TestStore_Create(t *testing.T) {
	s := NewStore(nil)
	end := time.Now().UTC().AddDate(0, 6, 0)

	id, err := s.Create(domain.MarketSpec{
		Question:    "Will the album drop this year?",
		Description: "Resolves Yes on an official release.",
		Category:    domain.CategoryPopCulture,
		EndDate:     end,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	m, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if m.Outcomes[0].Price != 0.5 || m.Outcomes[1].Price != 0.5 {
		t.Errorf("outcome prices = %v/%v, want 0.5/0.5", m.Outcomes[0].Price, m.Outcomes[1].Price)
	}
	if m.Volume != 0 {
		t.Errorf("volume = %v, want 0", m.Volume)
	}
	if len(m.History) != 1 {
		t.Errorf("history length = %d, want 1", len(m.History))
	}

	// New markets go to the front of the list.
	list := s.List()
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("List() head = %+v, want market %s first", list, id)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	end := time.Now().UTC().AddDate(0, 1, 0)
	tests := []struct {
		name string
		spec domain.MarketSpec
	}{
		{"empty question", domain.MarketSpec{Description: "d", Category: domain.CategoryCrypto, EndDate: end}},
		{"empty description", domain.MarketSpec{Question: "q?", Category: domain.CategoryCrypto, EndDate: end}},
		{"unknown category", domain.MarketSpec{Question: "q?", Description: "d", Category: "Weather", EndDate: end}},
		{"zero end date", domain.MarketSpec{Question: "q?", Description: "d", Category: domain.CategoryCrypto}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil)
			if _, err := s.Create(tt.spec); !errors.Is(err, domain.ErrInvalidMarketSpec) {
				t.Errorf("Create() error = %v, want ErrInvalidMarketSpec", err)
			}
		})
	}
}

func TestStore_ListByCategory(t *testing.T) {
	m1 := testMarket("m1", 0.5)
	m1.Category = domain.CategoryCrypto
	m2 := testMarket("m2", 0.5)
	m2.Category = domain.CategorySports
	m3 := testMarket("m3", 0.5)
	m3.Category = domain.CategoryCrypto

	s := NewStore([]domain.Market{m1, m2, m3})

	got := s.ListByCategory(domain.CategoryCrypto)
	if len(got) != 2 {
		t.Fatalf("ListByCategory() returned %d markets, want 2", len(got))
	}
	for _, m := range got {
		if m.Category != domain.CategoryCrypto {
			t.Errorf("market %s category = %s, want Crypto", m.ID, m.Category)
		}
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	s := NewStore(nil)
	if _, err := s.Get("nope"); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("Get() error = %v, want ErrMarketNotFound", err)
	}
}

func TestStore_Restore_OrdersByCreation(t *testing.T) {
	now := time.Now().UTC()
	old := testMarket("old", 0.5)
	old.CreatedAt = now.Add(-time.Hour)
	fresh := testMarket("fresh", 0.5)
	fresh.CreatedAt = now

	s := NewStore([]domain.Market{old, fresh})

	list := s.List()
	if len(list) != 2 || list[0].ID != "fresh" {
		t.Errorf("List() order = %v, want fresh first", []string{list[0].ID, list[1].ID})
	}
}

func TestStore_List_ReturnsCopies(t *testing.T) {
	s := NewStore([]domain.Market{testMarket("m1", 0.50)})

	list := s.List()
	list[0].Outcomes[0].Price = 0.99
	list[0].History[0].Price = 0.99

	m, _ := s.Get("m1")
	if m.Outcomes[0].Price != 0.50 {
		t.Errorf("store mutated through List() copy: price = %v", m.Outcomes[0].Price)
	}
	if m.History[0].Price != 0.50 {
		t.Errorf("store history mutated through List() copy: price = %v", m.History[0].Price)
	}
}

func TestSeed(t *testing.T) {
	markets := Seed()
	if len(markets) == 0 {
		t.Fatal("Seed() returned no markets")
	}
	for _, m := range markets {
		if sum := m.Outcomes[0].Price + m.Outcomes[1].Price; sum < 0.999 || sum > 1.001 {
			t.Errorf("market %s price sum = %v, want 1", m.ID, sum)
		}
		if len(m.History) == 0 || len(m.History) > domain.MaxHistoryPoints {
			t.Errorf("market %s history length = %d", m.ID, len(m.History))
		}
		last := m.History[len(m.History)-1]
		if last.Price != m.Outcomes[0].Price {
			t.Errorf("market %s latest history %v != quoted price %v", m.ID, last.Price, m.Outcomes[0].Price)
		}
	}
}
