package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sdca/hris-portal/internal/api"
	"github.com/sdca/hris-portal/internal/api/handler"
	"github.com/sdca/hris-portal/internal/core/ports"
	"github.com/sdca/hris-portal/internal/core/service"
	mongodb "github.com/sdca/hris-portal/internal/infrastructure/db/mongo"
	redisdb "github.com/sdca/hris-portal/internal/infrastructure/db/redis"
	"github.com/sdca/hris-portal/internal/infrastructure/queue"
	"github.com/sdca/hris-portal/internal/infrastructure/remote"
	"github.com/sdca/hris-portal/internal/infrastructure/store/file"
	"github.com/sdca/hris-portal/internal/pkg/config"
	"github.com/sdca/hris-portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hris-portal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction()})
	log.Info().Str("env", cfg.Env).Str("store", cfg.Store.Backend).Msg("starting hris portal")

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rc := remote.NewClient(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
	}, logger.Component("remote"))

	notifier := queue.NewLogoutNotifier(cfg.Session.NotifyWorkers, rc, logger.Component("logout-notifier"))
	notifier.Start(ctx)
	defer notifier.Close()

	sessions := service.NewSessionManager(service.SessionManagerOptions{
		Remote:           rc,
		Store:            store,
		Notifier:         notifier,
		Logger:           logger.Component("session"),
		BootstrapTimeout: cfg.Session.BootstrapTimeout,
	})

	e := api.NewRouter(api.Dependencies{
		Sessions: sessions,
		Checks:   map[string]handler.Check{"session_store": store.Ping},
		Logger:   logger.Component("http"),
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Screens show the loading placeholder until this settles.
		sessions.Bootstrap(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("goodbye")
	return nil
}

// openStore connects the configured session store backend.
func openStore(ctx context.Context, cfg *config.Config) (ports.SessionStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, nil, err
		}
		return redisdb.NewSessionStore(client, cfg.Store.Namespace), func() { _ = client.Close() }, nil

	case config.BackendMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		return mongodb.NewSessionStore(db, cfg.Store.Namespace), closeFn, nil

	default:
		s, err := file.NewSessionStore(cfg.Store.FileDir, cfg.Store.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}
