package handler

import (
	"log/slog"
	"net/http"

	"github.com/drolelabs/drole/internal/domain"
	"github.com/drolelabs/drole/internal/market"
	"github.com/drolelabs/drole/internal/sentiment"
)

// SentimentHandler serves sentiment and long-form analysis for a market.
// The underlying service is infallible, so these endpoints only fail when
// the market does not exist.
type SentimentHandler struct {
	sentiment *sentiment.Service
	markets   *market.Store
	logger    *slog.Logger
}

// NewSentimentHandler creates a SentimentHandler.
func NewSentimentHandler(s *sentiment.Service, markets *market.Store, logger *slog.Logger) *SentimentHandler {
	return &SentimentHandler{
		sentiment: s,
		markets:   markets,
		logger:    logger.With(slog.String("handler", "sentiment")),
	}
}

// GetSentiment returns the structured sentiment payload for a market.
// GET /api/markets/{id}/sentiment
func (h *SentimentHandler) GetSentiment(w http.ResponseWriter, r *http.Request) {
	m, err := h.markets.Get(pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrMarketNotFound)
		return
	}

	writeJSON(w, http.StatusOK, h.sentiment.Sentiment(r.Context(), m))
}

// analyzeResponse wraps the long-form analysis text.
type analyzeResponse struct {
	Text string `json:"text"`
}

// Analyze returns the long-form market analysis.
// GET /api/markets/{id}/analysis
func (h *SentimentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	m, err := h.markets.Get(pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrMarketNotFound)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Text: h.sentiment.Analyze(r.Context(), m),
	})
}
