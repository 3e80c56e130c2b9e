package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/relata/relata/internal/config"
	"github.com/relata/relata/internal/resource"
	"github.com/relata/relata/internal/store"
	"github.com/relata/relata/internal/web"
	"github.com/relata/relata/internal/web/events"
	"github.com/relata/relata/internal/web/middleware"
	"github.com/relata/relata/internal/web/server"
)

var serveResourcesPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  "Load relata.yml and the resource declarations, then serve the JSON:API endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(".")
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveResourcesPath, "resources", "resources.yml", "path to the resource declaration file")
}

func serve(cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, err := resource.LoadRegistry(serveResourcesPath)
	if err != nil {
		return err
	}
	logger.Info("resources loaded", zap.Strings("types", registry.Names()))

	db, err := sql.Open(cfg.Database.Driver, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	hub := events.NewHub(logger)
	handler := web.NewHandler(web.HandlerConfig{
		Registry:    registry,
		Store:       store.NewSQLStore(db, registry, store.DialectForDriver(cfg.Database.Driver)),
		Logger:      logger,
		BaseURL:     cfg.Server.BaseURL,
		Broadcaster: hub,
	})

	router := web.NewRouter(handler)
	router.Handle("/events", hub)

	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
	)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		limiter, err := middleware.NewRedisRateLimiter(redisClient, cfg.Redis.RateLimit, cfg.Redis.RateWindow)
		if err != nil {
			return err
		}
		chain.Use(middleware.RateLimit(limiter))
	}
	if cfg.Auth.Enabled {
		chain.Use(middleware.RequireAuth([]byte(cfg.Auth.Secret)))
	}
	chain.Use(middleware.ContentType())

	serverConfig := server.DefaultConfig(chain.Then(router))
	serverConfig.Address = cfg.Server.Addr()
	serverConfig.ReadTimeout = cfg.Server.ReadTimeout
	serverConfig.WriteTimeout = cfg.Server.WriteTimeout
	serverConfig.Database = &server.DatabaseConfig{
		DB:           db,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}

	srv, err := server.New(serverConfig)
	if err != nil {
		return err
	}

	shutdownConfig := server.DefaultShutdownConfig()
	shutdownConfig.Timeout = cfg.Server.ShutdownTimeout
	shutdownConfig.Logger = logger

	gs := server.NewGracefulShutdown(srv, shutdownConfig)
	gs.RegisterHook(hub.Close)
	gs.RegisterHook(func(ctx context.Context) error { return db.Close() })
	if redisClient != nil {
		gs.RegisterHook(func(ctx context.Context) error { return redisClient.Close() })
	}

	return gs.Start()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
