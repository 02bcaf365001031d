package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"hotlob_places/internal/adapters/observability"
	"hotlob_places/internal/adapters/places"
	redisad "hotlob_places/internal/adapters/redis"
	"hotlob_places/internal/app"
	"hotlob_places/internal/domain"
	"hotlob_places/internal/shared"
	mysqlrepo "hotlob_places/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("base", cfg.PlacesBase).
		Int("target", cfg.FeaturedTarget).
		Str("schedule", cfg.RefreshCron).
		Msg("refresher starting")

	if _, err := observability.Serve(cfg.MetricsAddr, observability.InitRegistry()); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics listener failed")
	}

	db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rdb.Close()

	client, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesInterval, cfg.PhotoMaxWidth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Places client")
	}

	policy := app.DefaultPolicy()
	policy.Target = cfg.FeaturedTarget
	policy.Window = cfg.FeaturedWindow

	svc := app.NewRefreshService(client, repo, repo, redisad.New(rdb), redisad.NewLock(rdb), app.Options{
		Policy:        policy,
		PlaceCacheTTL: cfg.PlaceCacheTTL,
		LockTTL:       cfg.LockTTL,
	})

	if cfg.RefreshCron == "" {
		if err := runOnce(ctx, svc); err != nil {
			log.Error().Err(err).Msg("refresh failed")
			os.Exit(1)
		}
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.RefreshCron, func() {
		if err := runOnce(ctx, svc); err != nil {
			log.Error().Err(err).Msg("scheduled refresh failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.RefreshCron).Msg("invalid REFRESH_CRON")
	}
	c.Start()
	log.Info().Str("schedule", cfg.RefreshCron).Msg("refresh scheduled")

	<-ctx.Done()
	// wait for a running refresh to finish
	<-c.Stop().Done()
	log.Info().Msg("refresher stopped")
}

func runOnce(ctx context.Context, svc *app.RefreshService) error {
	sum, err := svc.RefreshAll(ctx)
	if errors.Is(err, domain.ErrRefreshInProgress) {
		log.Warn().Msg("another refresh is running; skipped")
		return nil
	}
	if err != nil {
		return err
	}
	for _, r := range sum.Results {
		if !r.OK {
			log.Warn().Str("store_id", r.StoreID).Str("reason", r.Message).Msg("store not refreshed")
		}
	}
	log.Info().Int("ok", sum.OK).Int("failed", sum.Failed).Msg("refresh completed")
	return nil
}
