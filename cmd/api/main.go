package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "hotlob_places/internal/adapters/http_server"
	"hotlob_places/internal/adapters/observability"
	"hotlob_places/internal/adapters/places"
	redisad "hotlob_places/internal/adapters/redis"
	"hotlob_places/internal/app"
	"hotlob_places/internal/shared"
	mysqlrepo "hotlob_places/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	if _, err := observability.Serve(cfg.MetricsAddr, reg); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics listener failed")
	}

	// db
	db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rdb.Close()
	cache := redisad.New(rdb)

	client, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesInterval, cfg.PhotoMaxWidth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Places client")
	}

	policy := app.DefaultPolicy()
	policy.Target = cfg.FeaturedTarget
	policy.Window = cfg.FeaturedWindow

	refresh := app.NewRefreshService(client, repo, repo, cache, redisad.NewLock(rdb), app.Options{
		Policy:        policy,
		PlaceCacheTTL: cfg.PlaceCacheTTL,
		LockTTL:       cfg.LockTTL,
	})
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, R: refresh, Secret: cfg.CronSecret})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
