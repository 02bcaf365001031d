package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	PlacesBase     string
	PlacesKey      string
	PlacesInterval time.Duration
	PhotoMaxWidth  int

	CronSecret     string
	RefreshCron    string // empty: run once
	RequestTimeout time.Duration
	LockTTL        time.Duration

	FeaturedTarget int
	FeaturedWindow time.Duration
	PlaceCacheTTL  time.Duration
	CacheTTL       time.Duration
}

// Load reads the environment, after an optional .env in the working directory.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/places?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		PlacesBase:     env("PLACES_BASE_URL", "https://places.googleapis.com/v1"),
		PlacesKey:      env("GMAPS_API_KEY", os.Getenv("GOOGLE_MAPS_API_KEY")),
		PlacesInterval: time.Duration(atoi("PLACES_RPS_INTERVAL_MS", 120)) * time.Millisecond,
		PhotoMaxWidth:  atoi("PHOTO_MAX_WIDTH_PX", 600),

		CronSecret:     os.Getenv("CRON_SECRET"),
		RefreshCron:    os.Getenv("REFRESH_CRON"),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 300)) * time.Second,
		LockTTL:        time.Duration(atoi("REFRESH_LOCK_TTL_SECONDS", 600)) * time.Second,

		FeaturedTarget: atoi("FEATURED_TARGET", 5),
		FeaturedWindow: time.Duration(atoi("FEATURED_WINDOW_DAYS", 365)) * 24 * time.Hour,
		PlaceCacheTTL:  time.Duration(atoi("PLACE_CACHE_TTL_DAYS", 30)) * 24 * time.Hour,
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.PlacesKey == "" {
		log.Warn().Msg("GMAPS_API_KEY is empty")
	}
	if c.CronSecret == "" {
		log.Warn().Msg("CRON_SECRET is empty; refresh routes will reject every request")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
