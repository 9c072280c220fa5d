package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/teamace/ballshop/pkg/api"
	"github.com/teamace/ballshop/pkg/auth"
	"github.com/teamace/ballshop/pkg/config"
	"github.com/teamace/ballshop/pkg/middleware"
	"github.com/teamace/ballshop/pkg/observability"
	"github.com/teamace/ballshop/pkg/payments"
	"github.com/teamace/ballshop/pkg/sso"
	"github.com/teamace/ballshop/pkg/store"
	"github.com/teamace/ballshop/pkg/uploads"
)

// pendingOrderMaxAge is how long an order may sit unpaid before the expiry
// job marks it EXPIRED.
const pendingOrderMaxAge = 24 * time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	codec, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.WithError(err).Error("failed to initialize token codec")
		os.Exit(1)
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		logger.WithError(err).Error("failed to connect to postgres")
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("failed to run migrations")
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Error("invalid redis URL")
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The cache and rate limiter fail open, so a dead redis is
			// a degradation rather than a startup failure.
			logger.WithError(err).Warn("redis unreachable at startup, continuing without it")
		}
		defer redisClient.Close()
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	products := store.NewProducts(db)
	discounted := store.NewDiscountedProducts(db)
	cache, err := store.NewProductCache(products, discounted, redisClient, 5*time.Minute)
	if err != nil {
		logger.WithError(err).Error("failed to initialize product cache")
		os.Exit(1)
	}

	stores := api.Stores{
		Users:      store.NewUsers(db),
		Products:   products,
		Discounted: discounted,
		Carts:      store.NewCarts(db),
		Reviews:    store.NewReviews(db),
		Orders:     store.NewOrders(db),
		Cache:      cache,
	}

	authSvc := auth.NewService(stores.Users, auth.NewPasswordHasher(cfg.Auth.BcryptCost), codec)
	filter := middleware.NewJWTFilter(codec, logger, metrics)

	var rateLimiter *middleware.LoginRateLimiter
	if redisClient != nil {
		rateLimiter = middleware.NewLoginRateLimiter(redisClient, logger, cfg.Auth.LoginRatePerMinute)
	}

	var ssoHandlers *sso.Handlers
	registry, err := sso.NewRegistry(ctx, cfg.OAuth)
	if err != nil {
		logger.WithError(err).Error("failed to initialize OAuth2 providers")
		os.Exit(1)
	}
	if len(registry.Names()) > 0 {
		reconciler := sso.NewReconciler(stores.Users)
		ssoHandlers = sso.NewHandlers(registry, reconciler, authSvc, cfg.OAuth, cfg.Auth.CookieSecure, logger, metrics)
		logger.WithField("providers", registry.Names()).Info("federated login enabled")
	}

	var images uploads.ObjectStore
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" {
		s3Store, err := uploads.NewS3Store(ctx, cfg.S3)
		if err != nil {
			logger.WithError(err).Error("failed to initialize object storage")
			os.Exit(1)
		}
		images = s3Store
	} else {
		logger.Warn("object storage not configured, review image uploads disabled")
	}

	gateway := payments.NewClient(cfg.Payments, logger)

	server := api.NewServer(cfg, stores, authSvc, filter, rateLimiter, ssoHandlers, images, gateway, logger, metrics)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	// Background jobs: expire unpaid orders and sample pool stats.
	jobs := cron.New()
	jobs.AddFunc("@every 5m", func() {
		n, err := stores.Orders.ExpireStale(context.Background(), pendingOrderMaxAge)
		if err != nil {
			logger.WithError(err).Error("order expiry sweep failed")
			return
		}
		if n > 0 {
			logger.WithField("expired", n).Info("expired stale pending orders")
		}
	})
	if metrics != nil {
		jobs.AddFunc("@every 15s", func() {
			stats := db.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		})
	}
	jobs.Start()

	shutdown := observability.NewShutdownManager(logger, apiServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		stopped := jobs.Stop()
		select {
		case <-stopped.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(shutdown.WaitForShutdown)

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}
