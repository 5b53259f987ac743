package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/drolelabs/drole/internal/comments"
	"github.com/drolelabs/drole/internal/domain"
	"github.com/drolelabs/drole/internal/ledger"
	"github.com/drolelabs/drole/internal/market"
)

// CommentHandler serves per-market comment threads. Change propagation
// (bus notify, snapshot save) rides on the comment log's onChange hook.
type CommentHandler struct {
	comments *comments.Log
	markets  *market.Store
	users    *ledger.Ledger
	logger   *slog.Logger
}

// NewCommentHandler creates a CommentHandler.
func NewCommentHandler(c *comments.Log, markets *market.Store, users *ledger.Ledger, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: c,
		markets:  markets,
		users:    users,
		logger:   logger.With(slog.String("handler", "comment")),
	}
}

// ListComments returns the thread for a market, oldest first.
// GET /api/markets/{id}/comments
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	m, err := h.markets.Get(marketID)
	if err != nil {
		writeDomainError(w, domain.ErrMarketNotFound)
		return
	}

	thread := h.comments.List(marketID, comments.MarketInfo{
		Question: m.Question,
		Category: m.Category,
	})
	writeJSON(w, http.StatusOK, thread)
}

// addCommentRequest is the JSON body for posting a comment.
type addCommentRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// AddComment appends a comment to a market's thread.
// POST /api/markets/{id}/comments
func (h *CommentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	if _, err := h.markets.Get(marketID); err != nil {
		writeDomainError(w, domain.ErrMarketNotFound)
		return
	}

	var req addCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}
	// Blank authors get the session default: "You" for a connected wallet,
	// "Guest" otherwise.
	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = "Guest"
		if h.users.Connected() {
			author = "You"
		}
	}

	c := h.comments.Add(marketID, author, req.Text)
	writeJSON(w, http.StatusCreated, c)
}
