package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/opsdesk-api/internal/api"
	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/database"
	"github.com/opsdesk-api/internal/idempotency"
	"github.com/opsdesk-api/internal/realtime"
	"github.com/opsdesk-api/internal/repository"
	"github.com/opsdesk-api/internal/service"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	log.Info().Msg("Starting opsdesk API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if autoMigrate {
		if err := db.RunMigrations(migrationsPath); err != nil {
			return err
		}
	}

	repos := repository.New(db)
	services := service.NewServices(repos, cfg, log)

	// Idempotency keys live in redis when one is configured
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(cmd.Context()).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, idempotency keys will fail open")
		}
	} else {
		log.Warn().Msg("REDIS_ADDR not set, Idempotency-Key headers are ignored")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var hub *realtime.Hub
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(64)
		listener := realtime.NewListener(cfg.Database.GetDSN(), cfg.Realtime, hub, log)
		if err := listener.Start(ctx); err != nil {
			return err
		}
		defer listener.Close()
	}

	router := api.NewRouter(services, api.Dependencies{
		Tokens:      auth.NewManager(cfg.Auth),
		Idempotency: idempotency.NewStore(rdb, cfg.Redis.IdempotencyTTL),
		Hub:         hub,
		Database:    db,
	}, cfg, log)

	writeTimeout := cfg.Server.WriteTimeout
	if hub != nil {
		// the change feed holds its response open
		writeTimeout = 0
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	log.Info().Msg("Server exited gracefully")
	return nil
}
