package main

//	@title						Boltin API
//	@version					0.1.0
//	@description				Device registry and loss reporting service API.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boltin-app/boltin/internal/auth"
	"github.com/boltin-app/boltin/internal/config"
	"github.com/boltin-app/boltin/internal/devices"
	"github.com/boltin-app/boltin/internal/event"
	"github.com/boltin-app/boltin/internal/notify"
	"github.com/boltin-app/boltin/internal/registry"
	"github.com/boltin-app/boltin/internal/reports"
	"github.com/boltin-app/boltin/internal/server"
	"github.com/boltin-app/boltin/internal/store"
	"github.com/boltin-app/boltin/internal/transfers"
	"github.com/boltin-app/boltin/internal/version"
	"github.com/boltin-app/boltin/internal/ws"
	"github.com/boltin-app/boltin/pkg/plugin"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(version.Info())
		return
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	// Initialize logger from configuration.
	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Boltin server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the document store. The jsonfile driver keeps one flat file per
	// collection; sqlite packs everything into a single database file.
	var db plugin.Store
	var readyCheck server.ReadinessChecker

	driver := viperCfg.GetString("storage.driver")
	switch driver {
	case "sqlite":
		path := viperCfg.GetString("storage.sqlite_path")
		sq, err := store.NewSQLite(path)
		if err != nil {
			logger.Fatal("failed to open sqlite store", zap.Error(err))
		}
		if err := sq.CheckVersion(ctx, version.Short()); err != nil {
			logger.Fatal("schema version check failed", zap.Error(err))
		}
		db = sq
		readyCheck = func(ctx context.Context) error {
			return sq.DB().PingContext(ctx)
		}
		logger.Info("store initialized",
			zap.String("component", "store"),
			zap.String("driver", "sqlite"),
			zap.String("path", path),
		)
	case "jsonfile":
		dir := viperCfg.GetString("storage.data_dir")
		js, err := store.NewJSON(dir)
		if err != nil {
			logger.Fatal("failed to open jsonfile store", zap.Error(err))
		}
		db = js
		readyCheck = func(ctx context.Context) error {
			_, err := os.Stat(dir)
			return err
		}
		logger.Info("store initialized",
			zap.String("component", "store"),
			zap.String("driver", "jsonfile"),
			zap.String("data_dir", dir),
		)
	default:
		logger.Fatal("unknown storage driver", zap.String("driver", driver))
	}
	defer db.Close()

	// Create shared services
	bus := event.NewBus(logger.Named("event"))
	logger.Info("event bus created", zap.String("component", "event"))

	// Create module registry
	reg := registry.New(logger.Named("registry"))
	logger.Info("module registry created", zap.String("component", "registry"))

	// Register all modules (compile-time composition)
	modules := []plugin.Module{
		devices.New(),
		reports.New(),
		transfers.New(),
		notify.New(),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Fatal("failed to register module", zap.Error(err))
		}
	}

	// Validate dependency graph and API versions
	if err := reg.Validate(); err != nil {
		logger.Fatal("module validation failed", zap.Error(err))
	}

	// Initialize all modules with dependencies
	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  cfg.Sub("modules." + name),
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Modules: reg,
		}
	}); err != nil {
		logger.Fatal("failed to initialize modules", zap.Error(err))
	}

	// Start modules
	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start modules", zap.Error(err))
	}

	// Create auth service
	authStore := auth.NewUserStore(db)
	logger.Info("auth store initialized", zap.String("component", "auth"))

	jwtSecret := viperCfg.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		// Generate an ephemeral secret -- tokens won't survive restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Fatal("failed to generate JWT secret", zap.Error(err))
		}
		jwtSecret = hex.EncodeToString(b)
		logger.Info("using auto-generated JWT secret (normal for first run; set auth.jwt_secret in config to persist sessions across restarts)",
			zap.String("component", "auth"),
		)
	} else {
		logger.Info("JWT secret loaded from configuration", zap.String("component", "auth"))
	}

	accessTTL := viperCfg.GetDuration("auth.access_token_ttl")
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := viperCfg.GetDuration("auth.refresh_token_ttl")
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	tokens := auth.NewTokenService([]byte(jwtSecret), accessTTL, refreshTTL)
	authService := auth.NewService(authStore, tokens, logger.Named("auth"))
	authHandler := auth.NewHandler(authService, logger.Named("auth"))
	logger.Info("auth service initialized",
		zap.String("component", "auth"),
		zap.Duration("access_token_ttl", accessTTL),
		zap.Duration("refresh_token_ttl", refreshTTL),
	)

	// Create WebSocket handler for the live registry feed
	wsHandler := ws.NewHandler(tokens, bus, logger.Named("ws"))
	logger.Info("websocket handler initialized", zap.String("component", "ws"))

	// Create and start HTTP server
	addr := viperCfg.GetString("server.host") + ":" + viperCfg.GetString("server.port")
	if addr == ":" {
		addr = "0.0.0.0:8080"
	}
	logger.Info("HTTP server configured",
		zap.String("component", "server"),
		zap.String("addr", addr),
	)
	devMode := viperCfg.GetBool("server.dev_mode")
	srv := server.New(addr, reg, logger, readyCheck, authHandler, devMode, wsHandler)

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("Boltin server ready", zap.String("addr", addr))

	// Print human-readable banner for users watching docker logs.
	port := viperCfg.GetString("server.port")
	if port == "" {
		port = "8080"
	}
	fmt.Fprintf(os.Stderr, "\n  Boltin %s is ready!\n  Open http://localhost:%s in your browser.\n\n", version.Short(), port)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	reg.StopAll(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("Boltin server stopped")
}
