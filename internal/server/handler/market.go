package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/drolelabs/drole/internal/domain"
	"github.com/drolelabs/drole/internal/market"
)

// MarketHandler serves market catalog endpoints.
type MarketHandler struct {
	markets *market.Store
	created func(domain.Market) // optional hook invoked after a create
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler. created may be nil.
func NewMarketHandler(markets *market.Store, created func(domain.Market), logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		created: created,
		logger:  logger.With(slog.String("handler", "market")),
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   int             `json:"total"`
}

// ListMarkets returns markets, most recently created first, optionally
// filtered by category.
// GET /api/markets?category=Crypto
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	var markets []domain.Market

	if category := r.URL.Query().Get("category"); category != "" {
		c := domain.Category(category)
		if !domain.ValidCategory(c) {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		markets = h.markets.ListByCategory(c)
	} else {
		markets = h.markets.List()
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   len(markets),
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	m, err := h.markets.Get(id)
	if err != nil {
		writeDomainError(w, domain.ErrMarketNotFound)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// createMarketRequest is the JSON body for market creation. EndDate is
// RFC 3339.
type createMarketRequest struct {
	Question    string    `json:"question"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	EndDate     time.Time `json:"endDate"`
	Image       string    `json:"image"`
}

// CreateMarket lists a new binary market opening at 50/50.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.markets.Create(domain.MarketSpec{
		Question:    req.Question,
		Description: req.Description,
		Category:    domain.Category(req.Category),
		EndDate:     req.EndDate,
		Image:       req.Image,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	m, err := h.markets.Get(id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "created market not readable",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create market")
		return
	}

	h.logger.InfoContext(r.Context(), "market created",
		slog.String("market_id", id),
		slog.String("category", string(m.Category)),
	)
	if h.created != nil {
		h.created(m)
	}

	writeJSON(w, http.StatusCreated, m)
}
