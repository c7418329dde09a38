package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lumenworks/frameio-relay/internal/auth"
	"github.com/lumenworks/frameio-relay/internal/config"
	"github.com/lumenworks/frameio-relay/internal/db"
	"github.com/lumenworks/frameio-relay/internal/httpx"
	"github.com/lumenworks/frameio-relay/internal/integrations/frameio"
	"github.com/lumenworks/frameio-relay/internal/kafkax"
	"github.com/lumenworks/frameio-relay/internal/oauth"
	"github.com/lumenworks/frameio-relay/internal/otelx"
	"github.com/lumenworks/frameio-relay/internal/publish"
	"github.com/lumenworks/frameio-relay/internal/runtime"
	"github.com/lumenworks/frameio-relay/internal/secrets"
	"github.com/lumenworks/frameio-relay/internal/storage"
	"github.com/lumenworks/frameio-relay/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.ServiceName)

	ctx, stop := runtime.SignalContext(logger)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// The publisher is built once at startup. A broker that is down at boot
	// still yields a running server: readiness reports it, and publishes fail
	// as retryable until the broker returns.
	publisher := publish.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer publisher.Close()

	webhookService := webhook.NewService(logger, publisher)
	var verifier *webhook.SignatureVerifier
	if cfg.VerifySignatures {
		verifier = webhook.NewSignatureVerifier(cfg.WebhookSecret, cfg.SignatureTolerance)
	} else {
		logger.Warn("webhook signature verification is disabled")
	}
	webhookHandler := webhook.NewHandler(webhookService, verifier, logger)

	checks := []runtime.ReadyCheck{
		{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	var pool *db.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.Open(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: int32(cfg.DBMaxConns),
			MinConns: int32(cfg.DBMinConns),
		})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		if err := pool.Migrate(ctx, config.String("MIGRATIONS_DIR", "migrations")); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}

	mux := runtime.NewBaseMux(cfg.ServiceName, checks...)
	mux.HandleFunc("/api/v1/frameio/webhook", webhookHandler.Receive)

	if pool != nil {
		box, err := secrets.NewBox(cfg.TokenEncryptionKey)
		if err != nil {
			logger.Error("invalid token encryption key", "err", err)
			panic(err)
		}
		users := storage.NewUserRepository(pool)
		tokens := storage.NewTokenRepository(pool, box)

		var magic *auth.MagicLinkService
		if rdb != nil {
			magic = auth.NewMagicLinkService(rdb, users, logger,
				cfg.SessionSecret, cfg.BaseURL, cfg.MagicLinkTTL, cfg.SessionTTL)
		}
		authHandler := auth.NewHandler(magic, tokens, logger, cfg.SessionTTL, cfg.IsProduction())
		requireSession := auth.RequireSession(cfg.SessionSecret)

		if magic != nil {
			mux.HandleFunc("/auth/magic/send", authHandler.Send)
			mux.HandleFunc("/auth/magic/callback", authHandler.Callback)
		} else {
			logger.Warn("REDIS_ADDR not set, magic-link sign-in disabled")
		}
		mux.Handle("/dashboard", requireSession(http.HandlerFunc(authHandler.Dashboard)))
		mux.HandleFunc("/auth/logout", authHandler.Logout)

		providers, err := oauth.Setup(cfg)
		if err != nil {
			logger.Error("oauth setup failed", "err", err)
			panic(err)
		}
		if len(providers) > 0 {
			oauthHandler := oauth.NewHandler(tokens, logger, providers)
			mux.Handle("/oauth/{provider}/connect", requireSession(http.HandlerFunc(oauthHandler.Connect)))
			mux.Handle("/oauth/{provider}/callback", requireSession(http.HandlerFunc(oauthHandler.Callback)))
			mux.Handle("/oauth/{provider}/disconnect", requireSession(http.HandlerFunc(oauthHandler.Disconnect)))
			logger.Info("oauth providers enabled", "providers", providers)
		}

		frameioClient := frameio.NewClient(tokens, cfg.AdobeClientID, cfg.AdobeClientSecret, logger)
		frameioHandler := frameio.NewHandler(frameioClient, logger)
		mux.Handle("/integrations/frameio/me", requireSession(http.HandlerFunc(frameioHandler.Me)))
		mux.Handle("/integrations/frameio/assets/{id}/original", requireSession(http.HandlerFunc(frameioHandler.AssetOriginal)))
	} else {
		logger.Warn("DATABASE_URL not set, account features disabled")
	}

	// Redis keeps rate-limit windows shared across replicas; without it the
	// per-process limiter still protects a single instance.
	var rateLimit httpx.Middleware
	if rdb != nil {
		rateLimit = httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.ServiceName).
			Middleware(logger, !cfg.IsProduction())
	} else {
		rateLimit = httpx.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware()
	}

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		rateLimit,
		httpx.WithBodyLimit(cfg.BodyLimitBytes),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	handler = otelhttp.NewHandler(handler, cfg.ServiceName)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
