package main

import (
	"context"
	"database/sql"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"PickupStatsApi/internal/auth"
	"PickupStatsApi/internal/cache"
	"PickupStatsApi/internal/career"
	"PickupStatsApi/internal/data"
	"PickupStatsApi/internal/gamehub"
	"PickupStatsApi/internal/jsonlog"
	"PickupStatsApi/internal/lifecycle"
	"PickupStatsApi/internal/mailer"
	"PickupStatsApi/internal/metrics"

	"github.com/itbasis/go-clock"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type config struct {
	version string
	port    int
	env     string
	db      struct {
		dsn          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  string
	}
	redis struct {
		url string
	}
	jwt struct {
		secret string
		ttl    time.Duration
	}
	limiter struct {
		rps     float64
		burst   int
		enabled bool
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	recap struct {
		recipients []string
	}
	cors struct {
		trustedOrigins []string
	}
}

type application struct {
	logger *jsonlog.Logger
	config config
	models data.Models
	games  *lifecycle.Controller
	hubs   *gamehub.HubModel
	tokens *auth.Provider
	prom   *metrics.Prometheus
	wg     sync.WaitGroup
}

func main() {
	// A missing .env file is fine, flags and the real environment still apply.
	_ = godotenv.Load()

	var cfg config

	// Server Config
	cfg.version = "1.0.0"
	flag.IntVar(&cfg.port, "port", envInt("PICKUP_PORT", 8008), "http server port")
	flag.StringVar(&cfg.env, "env", envString("PICKUP_ENV", "development"),
		"Environment (development|staging|production)")

	// Database Config
	flag.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("PICKUP_DB_DSN"), "DB connection string")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConns, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	flag.StringVar(&cfg.db.maxIdleTime, "db-max-idle-time", "15m",
		"PostgreSQL max connection idle time")

	// Redis Config
	flag.StringVar(&cfg.redis.url, "redis-url", os.Getenv("PICKUP_REDIS_URL"),
		"Redis URL for the game cache and update stream (disabled when empty)")

	// Auth Config
	flag.StringVar(&cfg.jwt.secret, "jwt-secret", os.Getenv("PICKUP_JWT_SECRET"),
		"Secret used to sign authentication tokens")
	flag.DurationVar(&cfg.jwt.ttl, "jwt-ttl", 24*time.Hour, "Authentication token lifetime")

	// Limiter Config
	flag.Float64Var(&cfg.limiter.rps, "limiter-rps", 2, "Rate limiter maximum requests per second")
	flag.IntVar(&cfg.limiter.burst, "limiter-burst", 4, "Rate limiter maximum burst")
	flag.BoolVar(&cfg.limiter.enabled, "limiter-enabled", true, "Enable rate limiter")

	// SMTP Config
	flag.StringVar(&cfg.smtp.host, "smtp-host", envString("PICKUP_SMTP_HOST", "localhost"), "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", envInt("PICKUP_SMTP_PORT", 2525), "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("PICKUP_SMTP_USERNAME"),
		"SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("PICKUP_SMTP_PASSWORD"),
		"SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "Pickup Stats <no-reply@pickupstats.app>",
		"SMTP sender")
	flag.Func("recap-recipients", "Game recap email recipients (space separated)", func(val string) error {
		cfg.recap.recipients = strings.Fields(val)
		return nil
	})

	// CORS Config
	flag.Func("cors-trusted-origins", "Trusted CORS origins (space separated)", func(val string) error {
		origins := strings.Fields(val)
		if i := slices.Index(origins, "*"); i != -1 {
			return errors.New("cannot set CORS trusted origin to \"*\" with authorization header" +
				" in cross-origin requests")
		}
		cfg.cors.trustedOrigins = origins
		return nil
	})

	// Version
	displayVersion := flag.Bool("version", false, "Show API version and immediately exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version: %s\n", cfg.version)
		os.Exit(0)
	}

	logger := jsonlog.New(os.Stdout, jsonlog.LevelInfo)

	if cfg.jwt.secret == "" {
		logger.PrintFatal(errors.New("a jwt secret is required (-jwt-secret or PICKUP_JWT_SECRET)"), nil)
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	defer db.Close()
	logger.PrintInfo("database connection pool established", nil)

	expvar.NewString("version").Set(cfg.version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("database", expvar.Func(func() any {
		return db.Stats()
	}))
	expvar.Publish("timestamp", expvar.Func(func() any {
		return time.Now().Unix()
	}))

	app := &application{
		logger: logger,
		config: cfg,
		models: data.NewModels(db),
		hubs:   gamehub.NewHubModel(logger),
		tokens: auth.NewProvider(cfg.jwt.secret, clock.New()),
		prom:   metrics.NewPrometheus("pickup"),
	}

	notifiers := []lifecycle.Notifier{app.hubs}

	if cfg.redis.url != "" {
		rdb, err := openRedis(cfg)
		if err != nil {
			logger.PrintFatal(err, nil)
		}
		defer rdb.Close()
		logger.PrintInfo("redis connection established", nil)

		notifiers = append(notifiers, cache.NewGameCache(rdb), cache.NewStreamPublisher(rdb))
	}

	if len(cfg.recap.recipients) > 0 {
		m := mailer.New(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password,
			cfg.smtp.sender)
		notifiers = append(notifiers,
			mailer.NewRecapNotifier(m, &app.models.Players, cfg.recap.recipients))
	}

	app.games = lifecycle.New(lifecycle.Deps{
		Games:      &app.models.Games,
		Players:    &app.models.Players,
		Career:     career.New(&app.models.Players, logger, app.prom),
		Notifiers:  notifiers,
		Clock:      clock.New(),
		Logger:     logger,
		Metrics:    app.prom,
		Background: app.backgroundTask,
	})

	err = app.serve()
	if err != nil {
		logger.PrintFatal(err, nil)
	}
}

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConns)
	db.SetMaxIdleConns(cfg.db.maxIdleConns)
	duration, err := time.ParseDuration(cfg.db.maxIdleTime)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(duration)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func openRedis(cfg config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.redis.url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
