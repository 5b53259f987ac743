package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/drolelabs/drole/internal/domain"
)

// Service wraps a provider and guarantees a payload on every call. Provider
// failures degrade to a deterministic fallback derived from the current Yes
// price, so the caller-facing contract is infallible.
type Service struct {
	provider domain.SentimentProvider
	logger   *slog.Logger
}

// NewService creates a Service. A nil provider means every call takes the
// fallback path.
func NewService(provider domain.SentimentProvider, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		logger:   logger.With(slog.String("component", "sentiment")),
	}
}

// Sentiment returns the provider's payload, or the deterministic fallback
// when the provider errors or is absent.
func (s *Service) Sentiment(ctx context.Context, m domain.Market) domain.Sentiment {
	if s.provider != nil {
		out, err := s.provider.Sentiment(ctx, m)
		if err == nil {
			return out
		}
		s.logger.Warn("provider unavailable, using fallback",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
	return Fallback(m)
}

// Analyze returns the provider's long-form analysis, or a fallback paragraph
// when the provider errors or is absent.
func (s *Service) Analyze(ctx context.Context, m domain.Market) string {
	if s.provider != nil {
		text, err := s.provider.Analyze(ctx, m)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			s.logger.Warn("provider unavailable, using fallback analysis",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return fallbackAnalysis(m)
}

// Fallback synthesizes a sentiment payload from the market's own quote: the
// score is the Yes price mapped onto 0-100. The payload is labeled so the
// caller can distinguish it from real analysis.
func Fallback(m domain.Market) domain.Sentiment {
	score := int(math.Round(m.Outcomes[0].Price * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return domain.Sentiment{
		Score:   score,
		Summary: "Analysis unavailable. Sentiment estimated from the current market price.",
		BullishFactors: []string{
			"Market price reflects aggregated trader positioning",
			"Recent volume indicates sustained interest",
		},
		BearishFactors: []string{
			"No qualitative analysis available for this market",
			"Price-derived sentiment lags breaking developments",
		},
		Fallback: true,
	}
}

func fallbackAnalysis(m domain.Market) string {
	yes := m.Outcomes[0].Price * 100
	return fmt.Sprintf(
		"Automated analysis is currently unavailable. Based on trading activity, the market assigns a %.0f%% implied probability to %q resolving Yes. Treat this as a price-derived estimate rather than a researched view.",
		yes, m.Question,
	)
}
