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

	"github.com/actuallystonmai/site-content/internal/cache"
	"github.com/actuallystonmai/site-content/internal/config"
	"github.com/actuallystonmai/site-content/internal/handler"
	"github.com/actuallystonmai/site-content/internal/logger"
	"github.com/actuallystonmai/site-content/internal/repository"
	"github.com/actuallystonmai/site-content/internal/repository/memory"
	"github.com/actuallystonmai/site-content/internal/router"
	"github.com/actuallystonmai/site-content/internal/service"
	"github.com/actuallystonmai/site-content/internal/storage"
	"github.com/actuallystonmai/site-content/seeds"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type snapshotStore interface {
	service.Store
	seeds.Store
}

func main() {
	command := ""
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command == "help" || command == "-h" || command == "--help" {
		fmt.Println("usage: server [migrate-down|seed]")
		fmt.Println(config.Usage())
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Configure(cfg.LogLevel, cfg.LogPretty)

	ctx := context.Background()

	// ------------ Storage ---------------
	var store snapshotStore
	if cfg.InMemory() {
		if command == "migrate-down" {
			log.Fatal().Msg("migrate-down needs a PostgreSQL DATABASE_URL")
		}
		log.Warn().Msg("using in-memory store, content is lost on restart")
		store = memory.New()
	} else {
		pool, err := connectDB(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("database not ready")
		}
		defer pool.Close()
		log.Info().Msg("connected to PostgreSQL")

		repo := repository.NewRepository(pool)

		// ------------ Run Migrations ---------------
		if command == "migrate-down" {
			if err := repo.MigrateDown(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to migrate down")
			}
			log.Info().Msg("migrations dropped")
			return
		}
		if err := repo.MigrateUp(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate up")
		}
		log.Info().Msg("migrations applied")
		store = repo
	}

	// ------------ Setup Seed Data ---------------
	if command == "seed" {
		if _, err := seeds.Setup(ctx, store); err != nil {
			log.Fatal().Err(err).Msg("failed to seed")
		}
		return
	}
	if command != "" {
		log.Fatal().Str("command", command).Msg("unknown command")
	}

	// ------------ Redis ---------------
	var snapshotCache service.SnapshotCache
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache")
		} else {
			c := cache.NewCache(client, cfg.CacheTTL)
			defer c.Close()
			snapshotCache = c
			log.Info().Dur("ttl", cfg.CacheTTL).Msg("connected to Redis")
		}
	}

	blobs, err := storage.New(storage.Config{BaseDir: cfg.UploadDir})
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to prepare upload directory")
	}

	svc := service.NewService(store, blobs, snapshotCache)
	h := handler.NewHandler(svc)

	// ---------------- Server --------------------
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.Setup(h, blobs.Handler(), router.Options{
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("uploads", blobs.Dir()).Msg("server running")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func connectDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBPoolSize)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := waitForDB(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		log.Info().Msgf("waiting for database... (%d/30)", i+1)
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("database connection timeout after 30s")
}
