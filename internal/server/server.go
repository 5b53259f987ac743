// Package server assembles the HTTP + WebSocket API for the trading
// simulator.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/drolelabs/drole/internal/metrics"
	"github.com/drolelabs/drole/internal/server/handler"
	"github.com/drolelabs/drole/internal/server/middleware"
	"github.com/drolelabs/drole/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Markets   *handler.MarketHandler
	Trades    *handler.TradeHandler
	User      *handler.UserHandler
	Comments  *handler.CommentHandler
	Sentiment *handler.SentimentHandler
	Watchlist *handler.WatchlistHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (metrics, logging, CORS) applied.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health and metrics.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", metrics.Handler())

	// Market catalog.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)

	// Trading.
	mux.HandleFunc("POST /api/markets/{id}/buy", handlers.Trades.Buy)
	mux.HandleFunc("POST /api/markets/{id}/sell", handlers.Trades.Sell)

	// Market collaborators.
	mux.HandleFunc("GET /api/markets/{id}/comments", handlers.Comments.ListComments)
	mux.HandleFunc("POST /api/markets/{id}/comments", handlers.Comments.AddComment)
	mux.HandleFunc("GET /api/markets/{id}/sentiment", handlers.Sentiment.GetSentiment)
	mux.HandleFunc("GET /api/markets/{id}/analysis", handlers.Sentiment.Analyze)

	// Session user.
	mux.HandleFunc("GET /api/user", handlers.User.GetUser)
	mux.HandleFunc("POST /api/user/connect", handlers.User.Connect)
	mux.HandleFunc("POST /api/user/disconnect", handlers.User.Disconnect)
	mux.HandleFunc("PUT /api/user/preferences", handlers.User.SetPreference)
	mux.HandleFunc("GET /api/user/portfolio", handlers.User.GetPortfolio)

	// Watchlist.
	mux.HandleFunc("GET /api/watchlist", handlers.Watchlist.ListWatchlist)
	mux.HandleFunc("POST /api/watchlist/{id}", handlers.Watchlist.Toggle)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = metrics.Middleware(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
