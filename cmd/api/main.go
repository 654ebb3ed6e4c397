package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"shelfsmart/internal/account"
	"shelfsmart/internal/app"
	"shelfsmart/internal/catalog"
	"shelfsmart/internal/config"
	"shelfsmart/internal/httpx"
	"shelfsmart/internal/logger"
	"shelfsmart/internal/metrics"
	"shelfsmart/internal/pipeline"
	"shelfsmart/internal/upload"
	"shelfsmart/internal/vision"
	"shelfsmart/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shelfsmart: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := openDB(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("database connection OK", zap.String("dsn", redactDSN(cfg.Database.DSN)))

	store, err := upload.NewStore(upload.Config{
		Dir:           cfg.Upload.Dir,
		PublicBaseURL: cfg.Upload.PublicBaseURL,
		MaxBytes:      cfg.Upload.MaxBytes,
	}, log.Named("upload"))
	if err != nil {
		return err
	}

	var trusted []string
	if prefix := upload.TrustedPrefix(cfg.Upload.PublicBaseURL); prefix != "" {
		trusted = append(trusted, prefix)
	}

	model, err := app.NewVisionModel(ctx, cfg.Vision, trusted)
	if err != nil {
		return err
	}
	extractor := vision.NewExtractor(model, cfg.Vision.MaxTokens, log.Named("vision"))

	lookup, closeCatalog, err := app.NewCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCatalog()
	enricher := app.NewEnricher(lookup, cfg.Catalog, log.Named("enrich"))

	pipelineSvc := pipeline.NewService(store, extractor, enricher, pipeline.Config{
		VisionTimeout:      cfg.Vision.Timeout(),
		TrustedURLPrefixes: trusted,
	}, log.Named("pipeline"))

	bookRepo := catalog.NewPostgresRepo(pool, cfg.Database.QueryTimeout())
	accountSvc := account.NewService(account.NewPostgresRepo(pool, cfg.Database.QueryTimeout()))

	rateLimit := httpx.NewRateLimitMiddleware(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	defer rateLimit.Stop()
	if err := rateLimit.TrustProxies(cfg.HTTP.TrustedProxies); err != nil {
		return err
	}

	deps := routerDeps{
		Logger:         log,
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		RateLimit:      rateLimit,
		UploadDir:      store.Dir(),
		Ready:          bookRepo.Ping,
		Upload:         upload.NewHTTPHandler(store, log.Named("upload")),
		Extract:        pipeline.NewHTTPHandler(pipelineSvc, log.Named("pipeline")),
		Books:          catalog.NewHTTPHandler(catalog.NewService(bookRepo), log.Named("books")),
		Account:        account.NewHTTPHandler(accountSvc, log.Named("account")),
	}

	if cfg.Webhooks.ClerkSecret != "" {
		clerk, err := webhook.NewClerkHandler(cfg.Webhooks.ClerkSecret, accountSvc, log.Named("webhook.clerk"))
		if err != nil {
			return err
		}
		deps.Clerk = clerk.Handle
	} else {
		log.Warn("clerk webhook secret not set, /v1/webhooks/clerk disabled")
	}
	if cfg.Billing.StripeWebhookSecret != "" {
		deps.Stripe = webhook.NewStripeHandler(
			cfg.Billing.StripeWebhookSecret,
			webhook.NewStripeSessions(cfg.Billing.StripeSecretKey),
			cfg.Billing.Prices,
			accountSvc,
			log.Named("webhook.stripe"),
		).Handle
	} else {
		log.Warn("stripe webhook secret not set, /v1/webhooks/stripe disabled")
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      newRouter(deps),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("env", env),
			zap.String("vision", model.Name()),
			zap.String("catalog", cfg.Catalog.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database (%s): %w", redactDSN(dsn), err)
	}
	return pool, nil
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
