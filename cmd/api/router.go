package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"shelfsmart/internal/account"
	"shelfsmart/internal/catalog"
	"shelfsmart/internal/httpx"
	"shelfsmart/internal/metrics"
	"shelfsmart/internal/pipeline"
	"shelfsmart/internal/upload"
)

type routerDeps struct {
	Logger         *zap.Logger
	JWTSecret      string
	AllowedOrigins []string
	MaxBodyBytes   int64
	RateLimit      *httpx.RateLimitMiddleware
	UploadDir      string
	Ready          func(ctx context.Context) error

	Upload  *upload.HTTPHandler
	Extract *pipeline.HTTPHandler
	Books   *catalog.HTTPHandler
	Account *account.HTTPHandler

	// Webhook routes are mounted only when configured.
	Clerk  http.HandlerFunc
	Stripe http.HandlerFunc
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(httpx.RecoveryMiddleware(d.Logger))
	r.Use(httpx.RequestIDMiddleware(d.Logger))
	r.Use(httpx.AccessLogMiddleware(d.Logger))
	r.Use(httpx.SecurityHeadersMiddleware)
	r.Use(httpx.CORSMiddleware(d.AllowedOrigins))
	r.Use(httpx.RequestSizeLimitMiddleware(d.MaxBodyBytes))
	if d.RateLimit != nil {
		r.Use(d.RateLimit.Middleware)
	}
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	if d.UploadDir != "" {
		r.Handle(upload.URLPrefix+"*", http.StripPrefix(upload.URLPrefix, http.FileServer(http.Dir(d.UploadDir))))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httpx.AuthMiddleware(d.JWTSecret))
			r.Post("/upload", d.Upload.Upload)
			r.Post("/extract", d.Extract.Extract)
		})

		r.Post("/books", d.Books.Create)
		r.Get("/books", d.Books.List)
		r.Get("/books/export", d.Books.Export)

		r.With(httpx.OptionalAuthMiddleware(d.JWTSecret)).Get("/account/status", d.Account.GetStatus)

		if d.Clerk != nil {
			r.Post("/webhooks/clerk", d.Clerk)
		}
		if d.Stripe != nil {
			r.Post("/webhooks/stripe", d.Stripe)
		}
	})

	return r
}
