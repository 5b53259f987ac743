// Package snapshot persists the full simulator state (user ledger, markets,
// comment threads, watchlist) to a key-value backend as versioned JSON
// documents. Saves are best-effort: a failed write is logged and counted,
// never surfaced to the operation that triggered it.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drolelabs/drole/internal/domain"
	"github.com/drolelabs/drole/internal/metrics"
)

// Versioned snapshot keys. Bumping a suffix abandons old-format data
// instead of attempting migration.
const (
	KeyUser      = "drole:user:v1"
	KeyMarkets   = "drole:markets:v1"
	KeyComments  = "drole:comments:v1"
	KeyWatchlist = "drole:watchlist:v1"
)

// saveTimeout bounds a single persistence pass.
const saveTimeout = 5 * time.Second

// State is the exported view of everything worth persisting. Pointer and
// nil-able fields distinguish "absent from the backend" from legitimate
// zero state, so Load callers can fall back per document.
type State struct {
	User      *domain.User                `json:"user"`
	Markets   []domain.Market             `json:"markets"`
	Comments  map[string][]domain.Comment `json:"comments"`
	Watchlist []string                    `json:"watchlist"`
}

// Exporter produces the current state; the engine's stores implement it
// collectively through app wiring.
type Exporter func() State

// Service serializes state to the KV backend and restores it on startup.
type Service struct {
	kv     domain.KVStore
	export Exporter
	logger *slog.Logger
}

// NewService creates a snapshot Service over the given backend.
func NewService(kv domain.KVStore, export Exporter, logger *slog.Logger) *Service {
	return &Service{
		kv:     kv,
		export: export,
		logger: logger.With(slog.String("component", "snapshot")),
	}
}

// Save writes all four documents. Errors are logged and counted but not
// returned; in-memory state remains authoritative.
func (s *Service) Save() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	st := s.export()

	s.put(ctx, KeyUser, st.User)
	s.put(ctx, KeyMarkets, st.Markets)
	s.put(ctx, KeyComments, st.Comments)
	s.put(ctx, KeyWatchlist, st.Watchlist)
}

func (s *Service) put(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.fail(key, err)
		return
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.fail(key, err)
	}
}

func (s *Service) fail(key string, err error) {
	metrics.SnapshotFailures.Inc()
	s.logger.Error("snapshot write failed",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// Load reads a stored State. Each document degrades independently: an
// absent or unreadable key leaves the corresponding field zero so the
// caller falls back to defaults for that slice of state only.
func (s *Service) Load(ctx context.Context) State {
	var st State
	s.get(ctx, KeyUser, &st.User)
	s.get(ctx, KeyMarkets, &st.Markets)
	s.get(ctx, KeyComments, &st.Comments)
	s.get(ctx, KeyWatchlist, &st.Watchlist)
	return st
}

func (s *Service) get(ctx context.Context, key string, out any) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("snapshot read failed, using defaults",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("snapshot corrupt, using defaults",
			slog.String("key", key),
			slog.String("error", fmt.Sprintf("decode: %v", err)),
		)
	}
}
