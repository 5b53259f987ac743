package market

import (
	"math/rand"
	"time"

	"github.com/drolelabs/drole/internal/domain"
)

// Seed returns the demo market catalog used when no snapshot exists. Each
// market carries 30 days of synthetic history ending at its current price.
func Seed() []domain.Market {
	now := time.Now().UTC()
	rng := rand.New(rand.NewSource(now.UnixNano()))

	seeds := []struct {
		id, question, description string
		category                  domain.Category
		volume                    float64
		endDate                   time.Time
		yesName, noName           string
		yesPrice                  float64
		histBase, histSpread      float64
	}{
		{
			id:          "1",
			question:    "Will Bitcoin hit $150k in 2025?",
			description: `This market resolves to "Yes" if the price of Bitcoin hits $150,000.00 USD or greater on Coinbase before January 1, 2026, 11:59:59 PM ET.`,
			category:    domain.CategoryCrypto,
			volume:      18_420_000,
			endDate:     time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC),
			yesName:     "Yes", noName: "No",
			yesPrice: 0.32, histBase: 0.20, histSpread: 0.20,
		},
		{
			id:          "2",
			question:    "Will the US Federal Reserve cut interest rates in Q3 2025?",
			description: "This market resolves based on the official announcement from the FOMC meeting regarding the Federal Funds Rate in Q3 2025.",
			category:    domain.CategoryBusiness,
			volume:      8_500_000,
			endDate:     time.Date(2025, time.September, 30, 23, 59, 59, 0, time.UTC),
			yesName:     "Yes", noName: "No",
			yesPrice: 0.75, histBase: 0.60, histSpread: 0.20,
		},
		{
			id:          "3",
			question:    "Will a human land on Mars before 2030?",
			description: "Resolves to Yes if a human sets foot on the surface of Mars before Jan 1, 2030.",
			category:    domain.CategoryPopCulture,
			volume:      230_000,
			endDate:     time.Date(2029, time.December, 31, 23, 59, 59, 0, time.UTC),
			yesName:     "Yes", noName: "No",
			yesPrice: 0.05, histBase: 0.04, histSpread: 0.03,
		},
		{
			id:          "4",
			question:    "Who will win the 2025 NBA Championship?",
			description: "This market generally tracks the NBA finals winner for the 2024-2025 season.",
			category:    domain.CategorySports,
			volume:      4_500_000,
			endDate:     time.Date(2025, time.June, 20, 23, 59, 59, 0, time.UTC),
			yesName:     "Celtics", noName: "Others",
			yesPrice: 0.40, histBase: 0.40, histSpread: 0.40,
		},
		{
			id:          "5",
			question:    "Will GPT-6 be released before 2026?",
			description: "Resolves yes if OpenAI releases a model explicitly named GPT-6 or equivalent successor to GPT-5.",
			category:    domain.CategoryBusiness,
			volume:      1_200_000,
			endDate:     time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC),
			yesName:     "Yes", noName: "No",
			yesPrice: 0.45, histBase: 0.30, histSpread: 0.30,
		},
	}

	markets := make([]domain.Market, 0, len(seeds))
	for i, sd := range seeds {
		history := make([]domain.HistoryPoint, 0, 30)
		for d := 29; d >= 1; d-- {
			history = append(history, domain.HistoryPoint{
				Timestamp: now.AddDate(0, 0, -d),
				Price:     Clamp(sd.histBase + rng.Float64()*sd.histSpread),
			})
		}
		// The latest point matches the quoted price.
		history = append(history, domain.HistoryPoint{Timestamp: now, Price: sd.yesPrice})

		markets = append(markets, domain.Market{
			ID:          sd.id,
			Question:    sd.question,
			Description: sd.description,
			Category:    sd.category,
			Volume:      sd.volume,
			EndDate:     sd.endDate,
			Outcomes: [2]domain.Outcome{
				{ID: "YES", Name: sd.yesName, Price: sd.yesPrice},
				{ID: "NO", Name: sd.noName, Price: 1 - sd.yesPrice},
			},
			History: history,
			// Stagger creation times so the seeded ordering is stable.
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}
	return markets
}
