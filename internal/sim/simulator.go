// Package sim runs the background price simulation: a periodic tick that
// perturbs each market's quoted probability independently of user trades,
// modeling organic market drift. The simulator never applies trade-style
// price impact and never touches the user ledger.
package sim

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/drolelabs/drole/internal/bus"
	"github.com/drolelabs/drole/internal/market"
	"github.com/drolelabs/drole/internal/metrics"
)

const (
	// DefaultInterval between ticks.
	DefaultInterval = 3 * time.Second

	// perturbProbability is the per-market chance of moving on a tick.
	perturbProbability = 0.3

	// maxDelta bounds the uniform price fluctuation per tick (±2%).
	maxDelta = 0.02

	// maxVolumeIncrement bounds the random volume added on a perturbation.
	maxVolumeIncrement = 10_000
)

// Simulator perturbs market prices on a fixed interval. Start is idempotent
// (repeated calls never create duplicate tickers) and Stop is safe to call
// when the simulator was never started.
type Simulator struct {
	markets   *market.Store
	bus       *bus.Bus
	interval  time.Duration
	rng       *rand.Rand
	serialize func(func())
	logger    *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// New creates a Simulator. A nil rng falls back to a time-seeded source.
// serialize, when non-nil, wraps each tick's market mutations; the server
// passes the trade engine's lock so a tick's read-modify-write of prices
// never lands inside a trade's window. A nil serialize runs ticks directly.
func New(markets *market.Store, b *bus.Bus, interval time.Duration, rng *rand.Rand, serialize func(func()), logger *slog.Logger) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if serialize == nil {
		serialize = func(fn func()) { fn() }
	}
	return &Simulator{
		markets:   markets,
		bus:       b,
		interval:  interval,
		rng:       rng,
		serialize: serialize,
		logger:    logger.With(slog.String("component", "simulator")),
	}
}

// Start launches the tick loop. Calling Start on a running simulator is a
// no-op.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	s.logger.Info("simulation started", slog.Duration("interval", s.interval))

	go s.run(s.stop, s.done)
}

// Stop halts the tick loop and waits for the in-flight tick, if any, to
// finish. Idempotent; safe when never started.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info("simulation stopped")
}

// Running reports whether the tick loop is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Simulator) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick perturbs each market with fixed probability: a uniform price delta
// in ±maxDelta applied to the first outcome (clamped by the market store)
// plus a random non-negative volume increment. The whole read-modify-write
// pass runs under the serializer so it cannot interleave with a trade.
// Exported so tests can drive the simulation without real time.
func (s *Simulator) Tick() {
	changed := false
	s.serialize(func() {
		for _, m := range s.markets.List() {
			if s.rng.Float64() > perturbProbability {
				continue
			}

			delta := (s.rng.Float64() - 0.5) * 2 * maxDelta
			newPrice := m.Outcomes[0].Price + delta
			volume := float64(s.rng.Intn(maxVolumeIncrement))

			if err := s.markets.ApplyPriceDelta(m.ID, 0, newPrice, volume); err != nil {
				s.logger.Warn("tick skipped market",
					slog.String("market_id", m.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			changed = true
		}
	})

	metrics.SimulatorTicks.Inc()

	// Ticks notify subscribers but deliberately do not trigger snapshot
	// persistence, bounding write volume.
	if changed {
		s.bus.Notify(bus.TopicMarkets)
	}
}
