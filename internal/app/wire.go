package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/drolelabs/drole/internal/blob/s3"
	"github.com/drolelabs/drole/internal/bus"
	"github.com/drolelabs/drole/internal/comments"
	"github.com/drolelabs/drole/internal/config"
	"github.com/drolelabs/drole/internal/domain"
	"github.com/drolelabs/drole/internal/engine"
	"github.com/drolelabs/drole/internal/ledger"
	"github.com/drolelabs/drole/internal/market"
	"github.com/drolelabs/drole/internal/metrics"
	"github.com/drolelabs/drole/internal/notify"
	"github.com/drolelabs/drole/internal/sentiment"
	"github.com/drolelabs/drole/internal/server"
	"github.com/drolelabs/drole/internal/server/handler"
	"github.com/drolelabs/drole/internal/server/ws"
	"github.com/drolelabs/drole/internal/sim"
	"github.com/drolelabs/drole/internal/snapshot"
	filestore "github.com/drolelabs/drole/internal/store/file"
	pgstore "github.com/drolelabs/drole/internal/store/postgres"
	redisstore "github.com/drolelabs/drole/internal/store/redis"
	"github.com/drolelabs/drole/internal/wallet"
	"github.com/drolelabs/drole/internal/watchlist"
)

// Deps aggregates every wired component.
type Deps struct {
	KV        domain.KVStore
	Snapshot  *snapshot.Service
	Events    *bus.Bus
	Markets   *market.Store
	Users     *ledger.Ledger
	Comments  *comments.Log
	Watchlist *watchlist.Set
	Engine    *engine.Engine
	Simulator *sim.Simulator
	Alerts    *notify.Alerts
	Archiver  *s3blob.Archiver // nil when S3 archiving is not configured
	Hub       *ws.Hub
	Server    *server.Server
}

// Wire constructs the full dependency graph: persistence backend, restored
// state, trading engine, simulator, alerting, and the HTTP/WebSocket
// surface. The returned cleanup closes held resources and is safe to call
// once Wire succeeds.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, func(), error) {
	kv, err := newKV(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := kv.Close(); err != nil {
			logger.Warn("closing kv store", slog.String("error", err.Error()))
		}
	}

	events := bus.New()

	// The snapshot service and the stores reference each other (stores
	// persist through onChange hooks, the service exports store state), so
	// the service variable is bound late through closures.
	var snap *snapshot.Service
	save := func() {
		if snap != nil {
			snap.Save()
		}
	}

	provider := wallet.NewProvider(wallet.Options{
		KeystorePath:     cfg.Wallet.KeystorePath,
		KeystorePassword: cfg.Wallet.KeystorePassword,
		ConnectDelay:     cfg.Wallet.ConnectDelay.Duration,
	}, logger)
	users := ledger.New(ledger.DefaultUser(), provider, logger)

	markets := market.NewStore(nil)
	commentLog := comments.NewLog(nil, func() {
		events.Notify(bus.TopicComments)
		save()
	})
	watched := watchlist.NewSet(nil, func() {
		events.Notify(bus.TopicWatchlist)
		save()
	})

	export := func() snapshot.State {
		u := users.Export()
		return snapshot.State{
			User:      &u,
			Markets:   markets.Export(),
			Comments:  commentLog.Export(),
			Watchlist: watched.List(),
		}
	}
	snap = snapshot.NewService(kv, export, logger)

	// Restore persisted state; each document independently falls back to
	// defaults when absent or unreadable.
	st := snap.Load(ctx)
	if st.User != nil {
		users.Restore(*st.User)
	}
	if len(st.Markets) > 0 {
		markets.Restore(st.Markets)
	} else {
		markets.Restore(market.Seed())
	}
	if st.Comments != nil {
		commentLog.Restore(st.Comments)
	}
	if st.Watchlist != nil {
		watched.Restore(st.Watchlist)
	}
	metrics.ActiveMarkets.Set(float64(markets.Count()))

	eng := engine.New(markets, users, events, snap, logger)

	var sentimentProvider domain.SentimentProvider
	if cfg.Sentiment.Endpoint != "" {
		sentimentProvider = sentiment.NewHTTPProvider(cfg.Sentiment.Endpoint, cfg.Sentiment.APIKey)
	}
	sentimentSvc := sentiment.NewService(sentimentProvider, logger)

	simulator := sim.New(markets, events, cfg.Simulator.Interval.Duration, nil, eng.WithTradeLock, logger)

	alerts := notify.NewAlerts(newSenders(cfg), users.Preferences, func(marketID string) bool {
		if watched.Contains(marketID) {
			return true
		}
		for _, p := range users.User().Positions {
			if p.MarketID == marketID {
				return true
			}
		}
		return false
	}, logger)

	// The alert listener attaches before the first-subscriber hook is
	// armed, so alert delivery alone never starts the simulator; only a
	// WebSocket client does.
	events.Subscribe(func(ev bus.Event) {
		if ev.Topic != bus.TopicMarkets {
			return
		}
		go alerts.CheckPrices(context.Background(), markets.List())
	})
	events.OnFirstSubscribe(simulator.Start)

	hub := ws.NewHub(events, func(topic bus.Topic) any {
		switch topic {
		case bus.TopicMarkets:
			return markets.List()
		case bus.TopicUser:
			return users.User()
		case bus.TopicComments:
			return commentLog.Export()
		case bus.TopicWatchlist:
			return watched.List()
		}
		return nil
	}, logger)

	var archiver *s3blob.Archiver
	if cfg.S3.Bucket != "" {
		s3client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: s3 archiver: %w", err)
		}
		archiver = s3blob.NewArchiver(s3blob.NewWriter(s3client), export)
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(markets, simulator, logger),
		Markets: handler.NewMarketHandler(markets, func(m domain.Market) {
			events.Notify(bus.TopicMarkets)
			save()
			metrics.ActiveMarkets.Set(float64(markets.Count()))
			go alerts.MarketCreated(context.Background(), m)
		}, logger),
		Trades:    handler.NewTradeHandler(eng, logger),
		User:      handler.NewUserHandler(users, eng, events, snap, logger),
		Comments:  handler.NewCommentHandler(commentLog, markets, users, logger),
		Sentiment: handler.NewSentimentHandler(sentimentSvc, markets, logger),
		Watchlist: handler.NewWatchlistHandler(watched, markets, logger),
	}

	srv := server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, handlers, hub, logger)

	return &Deps{
		KV:        kv,
		Snapshot:  snap,
		Events:    events,
		Markets:   markets,
		Users:     users,
		Comments:  commentLog,
		Watchlist: watched,
		Engine:    eng,
		Simulator: simulator,
		Alerts:    alerts,
		Archiver:  archiver,
		Hub:       hub,
		Server:    srv,
	}, cleanup, nil
}

// newKV selects the snapshot backend from configuration.
func newKV(ctx context.Context, cfg *config.Config) (domain.KVStore, error) {
	switch strings.ToLower(cfg.Persistence.Backend) {
	case "file":
		kv, err := filestore.New(cfg.Persistence.Dir)
		if err != nil {
			return nil, fmt.Errorf("app: file store: %w", err)
		}
		return kv, nil
	case "redis":
		kv, err := redisstore.New(ctx, redisstore.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("app: redis store: %w", err)
		}
		return kv, nil
	case "postgres":
		kv, err := pgstore.New(ctx, pgstore.Config{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("app: postgres store: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("app: unknown persistence backend %q", cfg.Persistence.Backend)
	}
}

// newSenders builds the notification channels with configured credentials.
func newSenders(cfg *config.Config) []notify.Sender {
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	return senders
}
