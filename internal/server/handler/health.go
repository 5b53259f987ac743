package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/drolelabs/drole/internal/market"
	"github.com/drolelabs/drole/internal/sim"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	markets   *market.Store
	simulator *sim.Simulator
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(markets *market.Store, simulator *sim.Simulator, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		markets:   markets,
		simulator: simulator,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// HealthCheck reports liveness plus a small operational snapshot.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds":    int64(time.Since(h.startedAt).Seconds()),
		"markets":           h.markets.Count(),
		"simulator_running": h.simulator.Running(),
	})
}
