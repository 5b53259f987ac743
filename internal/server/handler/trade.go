package handler

import (
	"log/slog"
	"net/http"

	"github.com/drolelabs/drole/internal/engine"
)

// TradeHandler serves buy and sell endpoints.
type TradeHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(e *engine.Engine, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		engine: e,
		logger: logger.With(slog.String("handler", "trade")),
	}
}

// buyRequest is the JSON body for buys.
type buyRequest struct {
	OutcomeID string  `json:"outcomeId"`
	AmountUSD float64 `json:"amountUsd"`
}

// Buy spends USD on an outcome of the market.
// POST /api/markets/{id}/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AmountUSD <= 0 {
		writeError(w, http.StatusBadRequest, "amountUsd must be positive")
		return
	}

	res, err := h.engine.Buy(marketID, req.OutcomeID, req.AmountUSD)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// sellRequest is the JSON body for sells. Percent is a fraction in (0,1].
type sellRequest struct {
	OutcomeID string  `json:"outcomeId"`
	Percent   float64 `json:"percent"`
}

// Sell liquidates a fraction of an open position at the market price.
// POST /api/markets/{id}/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req sellRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.engine.Sell(marketID, req.OutcomeID, req.Percent)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
