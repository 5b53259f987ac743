package handler

import (
	"log/slog"
	"net/http"

	"github.com/drolelabs/drole/internal/domain"
	"github.com/drolelabs/drole/internal/market"
	"github.com/drolelabs/drole/internal/watchlist"
)

// WatchlistHandler serves the user's bookmarked market IDs. Change
// propagation rides on the set's onChange hook.
type WatchlistHandler struct {
	watchlist *watchlist.Set
	markets   *market.Store
	logger    *slog.Logger
}

// NewWatchlistHandler creates a WatchlistHandler.
func NewWatchlistHandler(s *watchlist.Set, markets *market.Store, logger *slog.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		watchlist: s,
		markets:   markets,
		logger:    logger.With(slog.String("handler", "watchlist")),
	}
}

// ListWatchlist returns the bookmarked market IDs.
// GET /api/watchlist
func (h *WatchlistHandler) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"marketIds": h.watchlist.List(),
	})
}

// toggleResponse reports the membership state after a toggle.
type toggleResponse struct {
	MarketID string `json:"marketId"`
	Watched  bool   `json:"watched"`
}

// Toggle flips watchlist membership for a market.
// POST /api/watchlist/{id}
func (h *WatchlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	if _, err := h.markets.Get(marketID); err != nil {
		writeDomainError(w, domain.ErrMarketNotFound)
		return
	}

	watched := h.watchlist.Toggle(marketID)
	writeJSON(w, http.StatusOK, toggleResponse{
		MarketID: marketID,
		Watched:  watched,
	})
}
