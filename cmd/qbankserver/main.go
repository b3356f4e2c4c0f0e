package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/neuroqbank/qbank_server/config"
	"github.com/neuroqbank/qbank_server/internal/api"
	"github.com/neuroqbank/qbank_server/internal/qbank"
	"github.com/neuroqbank/qbank_server/internal/review"
	"github.com/neuroqbank/qbank_server/internal/scheduler"
	"github.com/neuroqbank/qbank_server/internal/stores/cache"
	"github.com/neuroqbank/qbank_server/internal/stores/models"
)

const (
	GracefulShutdownTimeout = 10 * time.Second
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if strings.ToLower(cfg.LogLevel) == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if cfg.DBConnUri == "" {
		log.Fatal().Msg("db-conn-uri is required")
	}
	if cfg.SecretKey == "" {
		log.Fatal().Msg("secret-key is required")
	}

	m, err := migrate.New(cfg.DBMigrationsPath, cfg.DBConnUri)
	if err != nil {
		log.Fatal().Err(err).Msg("could not init migrations")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("could not run migrations")
	}
	m.Close()

	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.DBConnUri)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to db")
	}
	defer dbPool.Close()

	queries := models.New(dbPool)
	countCache := cache.New(cache.Config{
		DefaultTTL:      time.Duration(cfg.SmartCountCacheTTL) * time.Second,
		CleanupInterval: time.Minute,
		MaxItems:        1000,
	})
	defer countCache.Close()

	handler := &api.Handler{
		Config:    cfg,
		Scheduler: scheduler.NewServer(cfg, queries, scheduler.PoolTx{Pool: dbPool, Queries: queries}),
		Review:    review.NewServer(cfg, queries, countCache),
		QBank:     qbank.NewServer(cfg, queries, countCache),
	}

	e := echo.New()
	e.HideBanner = true
	handler.Register(e)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: e,
	}
	idleConnsClosed := make(chan struct{})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		// We received an interrupt signal, shut down.
		log.Info().Msg("got quit signal...")
		ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)

		if err := srv.Shutdown(ctx); err != nil {
			// Error from closing listeners, or context timeout:
			log.Error().Msgf("HTTP server Shutdown: %v", err)
		}
		cancel()
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("starting qbank server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("")
	}
	<-idleConnsClosed
	log.Info().Msg("server gracefully shutting down")
}
