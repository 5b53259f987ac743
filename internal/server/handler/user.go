package handler

import (
	"log/slog"
	"net/http"

	"github.com/drolelabs/drole/internal/bus"
	"github.com/drolelabs/drole/internal/domain"
	"github.com/drolelabs/drole/internal/engine"
	"github.com/drolelabs/drole/internal/ledger"
)

// UserHandler serves the session user: wallet connection, preferences, and
// the marked-to-market portfolio.
type UserHandler struct {
	users  *ledger.Ledger
	engine *engine.Engine
	events *bus.Bus
	snap   engine.Snapshotter // persists after user mutations; may be nil
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler. snap may be nil.
func NewUserHandler(users *ledger.Ledger, e *engine.Engine, events *bus.Bus, snap engine.Snapshotter, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		engine: e,
		events: events,
		snap:   snap,
		logger: logger.With(slog.String("handler", "user")),
	}
}

// GetUser returns the current user state.
// GET /api/user
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.users.User())
}

// Connect performs the simulated wallet handshake. Idempotent; reconnecting
// returns the existing balance and positions.
// POST /api/user/connect
func (h *UserHandler) Connect(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Connect(r.Context())
	if err != nil {
		writeError(w, http.StatusRequestTimeout, "wallet connect cancelled")
		return
	}

	h.logger.InfoContext(r.Context(), "wallet connected",
		slog.String("address", deref(u.Address)),
	)
	h.save()
	writeJSON(w, http.StatusOK, u)
}

// Disconnect clears the session address, preserving balance and positions.
// POST /api/user/disconnect
func (h *UserHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.users.Disconnect()
	h.save()
	writeJSON(w, http.StatusOK, h.users.User())
}

// preferenceRequest is the JSON body for preference updates.
type preferenceRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// SetPreference toggles a single notification preference.
// PUT /api/user/preferences
func (h *UserHandler) SetPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.SetNotificationPreference(req.Key, req.Value); err != nil {
		writeError(w, http.StatusBadRequest, "unknown preference key")
		return
	}
	h.save()
	writeJSON(w, http.StatusOK, h.users.Preferences())
}

// portfolioResponse is the marked-to-market portfolio view.
type portfolioResponse struct {
	Balance   float64           `json:"balance"`
	Positions []domain.Position `json:"positions"`
	Total     float64           `json:"total"` // balance plus position value
}

// GetPortfolio returns positions valued at current market prices.
// GET /api/user/portfolio
func (h *UserHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	positions := h.engine.Portfolio()
	balance := h.users.Balance()

	total := balance
	for _, p := range positions {
		total += p.CurrentValue
	}

	writeJSON(w, http.StatusOK, portfolioResponse{
		Balance:   balance,
		Positions: positions,
		Total:     total,
	})
}

// save runs the post-mutation sequence for user state changes.
func (h *UserHandler) save() {
	h.events.Notify(bus.TopicUser)
	if h.snap != nil {
		h.snap.Save()
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
