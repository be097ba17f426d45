package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/events"
	httpapi "github.com/aussiebroadwan/conductor/internal/conductor/http"
	"github.com/aussiebroadwan/conductor/internal/conductor/peer"
	"github.com/aussiebroadwan/conductor/internal/conductor/registry"
	"github.com/aussiebroadwan/conductor/internal/conductor/service"
	"github.com/aussiebroadwan/conductor/internal/conductor/store"
	"github.com/aussiebroadwan/conductor/internal/conductor/store/drivers/sqlite"
	"github.com/aussiebroadwan/conductor/pkg/cryptox"
	"github.com/aussiebroadwan/conductor/pkg/jwtx"
	"github.com/aussiebroadwan/conductor/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	seedTimeout = 30 * time.Second
)

// Application encapsulates the conductor with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	registry *registry.Registry
	hub      *events.Hub
	sink     events.Sink
	external externalSink
	verifier jwtx.Verifier

	// Services
	peerService         *service.PeerService
	seedService         *service.SeedService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "conductor",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetMasterKeyPath(app.cfg.MasterKeyPath)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initEvents(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initAuth(); err != nil {
		app.closeEvents()
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.seed()
	app.housekeepingService.Start()

	app.logger.Info("conductor starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down conductor...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Hijacked websocket sessions are not tracked by Shutdown.
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.registry.Close()
	app.closeEvents()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("conductor stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initEvents() error {
	app.hub = events.NewHub(app.logger)

	sink, ext, err := buildSink(app.cfg, app.hub)
	if err != nil {
		return err
	}
	app.sink = sink
	app.external = ext

	app.logger.Info("lifecycle events configured", "driver", app.cfg.EventsDriver, "prefix", app.cfg.EventsPrefix)
	return nil
}

func (app *Application) closeEvents() {
	if app.external == nil {
		return
	}
	if err := app.external.Close(); err != nil {
		app.logger.Error("error closing event sink", "error", err)
	}
}

// initAuth builds the operator token verifier. Without a secret the API is
// left open.
func (app *Application) initAuth() error {
	if app.cfg.JWTSecret == "" {
		if app.cfg.Env != "dev" {
			app.logger.Warn("CONDUCTOR_JWT_SECRET not set; API authentication disabled", "env", app.cfg.Env)
		}
		return nil
	}

	v, err := jwtx.NewHS256(app.cfg.JWTSecret, app.cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	app.verifier = v
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.registry = registry.New(app.logger,
		peer.WithPollInterval(app.cfg.PeerPollInterval),
		peer.WithRequestTimeout(app.cfg.PeerRequestTimeout),
		peer.WithLogger(app.logger),
	)

	app.peerService = &service.PeerService{
		Store:      app.db,
		Registry:   app.registry,
		Events:     app.sink,
		PeerEvents: app.hub,
	}

	app.seedService = &service.SeedService{
		Peers:  app.peerService,
		Logger: app.logger,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.peerService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// seed reconciles configured initial peers. Failures are logged and never
// prevent startup.
func (app *Application) seed() {
	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()
	ctx = slogx.WithContext(ctx, app.logger)

	for _, set := range []struct {
		kind  domain.PeerKind
		peers []service.InitialPeer
	}{
		{domain.KindRunner, app.cfg.InitialRunners},
		{domain.KindGateway, app.cfg.InitialGateways},
	} {
		res, err := app.seedService.Seed(ctx, set.kind, set.peers)
		if err != nil {
			app.logger.Error("initial peer seeding failed", "kind", set.kind, "error", err)
			continue
		}
		app.logger.Info("initial peers seeded",
			"kind", set.kind,
			"registered", res.Registered,
			"pruned", res.Pruned,
			"failed", len(res.Failed),
		)
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.PeerService = app.peerService
	router.Hub = app.hub
	router.EventsCheck = sinkCheck(app.external)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
