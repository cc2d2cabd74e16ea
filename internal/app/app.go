package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/broadcast/nats"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/broadcast/redis"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/config"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/core"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store/mongo"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/store/sqlite"
	transporthttp "github.com/pkurukuladithya/Block-Me-Messenger/internal/transport/http"
)

// fabric is a cluster fan-out broadcaster that needs its own receive loop.
type fabric interface {
	core.Broadcaster
	Run(ctx context.Context) error
	Close() error
}

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	fabric          fabric
	store           store.MessageStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := newStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	hub := core.NewHub(logger)

	fab, err := newFabric(cfg, hub, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init broadcast: %w", err)
	}

	var broadcaster core.Broadcaster = hub
	if fab != nil {
		broadcaster = fab
	}

	pool := core.NewPool(cfg.Relay.Workers)
	relay := core.NewRelay(st, broadcaster, pool, core.RelayOptions{
		HistoryLimit:   cfg.Relay.HistoryLimit,
		StoreTimeout:   cfg.Store.Timeout,
		SanitizeHTML:   cfg.Relay.SanitizeHTML,
		PublishTimeout: cfg.Broadcast.PublishTimeout,
	}, logger)

	logger.Info().
		Str("store", cfg.Store.Driver).
		Str("broadcast", cfg.Broadcast.Driver).
		Int("workers", pool.Size()).
		Bool("jwt", cfg.Auth.JWTSecret != "").
		Msg("relay initialized")

	return &App{
		server:          transporthttp.NewServer(relay, hub, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		fabric:          fab,
		store:           st,
		log:             logger,
	}, nil
}

func newStore(cfg *config.Config, logger *zerolog.Logger) (store.MessageStore, error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		st, err := sqlite.New(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("db_path", cfg.Store.SQLitePath).Msg("database initialized")
		return st, nil
	case config.StoreMongo:
		// Connects lazily so the relay starts even while MongoDB is down.
		logger.Info().
			Str("database", cfg.Store.MongoDatabase).
			Str("collection", cfg.Store.MongoCollection).
			Msg("mongo store configured")
		return mongo.New(mongo.Options{
			URI:        cfg.Store.MongoURI,
			Database:   cfg.Store.MongoDatabase,
			Collection: cfg.Store.MongoCollection,
			Timeout:    cfg.Store.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newFabric(cfg *config.Config, hub *core.Hub, logger *zerolog.Logger) (fabric, error) {
	switch cfg.Broadcast.Driver {
	case config.BroadcastRedis:
		return redis.New(redisOptions(cfg), hub, logger), nil
	case config.BroadcastNATS:
		fab, err := nats.New(natsOptions(cfg), hub, logger)
		if err != nil {
			return nil, err
		}
		return fab, nil
	case config.BroadcastLocal, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown broadcast driver %q", cfg.Broadcast.Driver)
	}
}

func redisOptions(cfg *config.Config) redis.Options {
	return redis.Options{
		Addr:     cfg.Broadcast.RedisAddr,
		Password: cfg.Broadcast.RedisPassword,
		DB:       cfg.Broadcast.RedisDB,
		Channel:  cfg.Broadcast.RedisChannel,
	}
}

func natsOptions(cfg *config.Config) nats.Options {
	return nats.Options{
		URL:     cfg.Broadcast.NATSURL,
		Subject: cfg.Broadcast.NATSSubject,
		Timeout: cfg.Broadcast.NATSTimeout,
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.hub.Run(ctx)
	}()

	if a.fabric != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.fabric.Run(ctx); err != nil {
				a.log.Error().Err(err).Msg("broadcast fabric stopped")
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer shutdownCancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		} else {
			runErr = <-serverErr
		}
	}

	cancel()
	wg.Wait()
	a.cleanup()
	return runErr
}

// cleanup closes the broadcast fabric and the store.
func (a *App) cleanup() {
	if a.fabric != nil {
		if err := a.fabric.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close broadcast fabric")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
