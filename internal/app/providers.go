// Package app builds the configured backends shared by the server and CLIs.
package app

import (
	"context"

	"go.uber.org/zap"

	"shelfsmart/internal/cache"
	"shelfsmart/internal/config"
	"shelfsmart/internal/enrich"
	"shelfsmart/internal/platform/gemini"
	"shelfsmart/internal/platform/googlebooks"
	"shelfsmart/internal/platform/openai"
	"shelfsmart/internal/platform/openlibrary"
	"shelfsmart/internal/vision"
)

// NewVisionModel returns the backend named by cfg.Provider. Backends that
// download images themselves only fetch under fetchPrefixes.
func NewVisionModel(ctx context.Context, cfg config.VisionConfig, fetchPrefixes []string) (vision.Model, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewVision(ctx, gemini.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			FetchPrefixes: fetchPrefixes,
		})
	default:
		return openai.NewVision(openai.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	}
}

// NewCatalog returns the catalog named by cfg.Catalog.Provider, behind a Redis
// cache when cfg.Cache.Addr is set. The returned func releases the cache.
func NewCatalog(ctx context.Context, cfg config.Config, log *zap.Logger) (enrich.Catalog, func(), error) {
	var c enrich.Catalog
	switch cfg.Catalog.Provider {
	case "openlibrary":
		c = openlibrary.NewClient(openlibrary.Config{
			BaseURL:   cfg.Catalog.BaseURL,
			UserAgent: cfg.Catalog.UserAgent,
			RPS:       cfg.Catalog.RPS,
			Timeout:   cfg.Catalog.LookupTimeout(),
		})
	default:
		c = googlebooks.NewClient(googlebooks.Config{
			BaseURL:   cfg.Catalog.BaseURL,
			APIKey:    cfg.Catalog.APIKey,
			UserAgent: cfg.Catalog.UserAgent,
			RPS:       cfg.Catalog.RPS,
			Timeout:   cfg.Catalog.LookupTimeout(),
		})
	}

	if cfg.Cache.Addr == "" {
		return c, func() {}, nil
	}

	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		Prefix:   cfg.Cache.KeyPrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("catalog cache enabled", zap.String("addr", cfg.Cache.Addr))
	return enrich.NewCachedCatalog(c, rc, cfg.Cache.TTL(), log.Named("cache")), func() { _ = rc.Close() }, nil
}

// NewEnricher applies the configured group size, pause and lookup timeout.
func NewEnricher(c enrich.Catalog, cfg config.CatalogConfig, log *zap.Logger) *enrich.Enricher {
	return enrich.NewEnricher(c, enrich.FixedDelay(cfg.GroupDelay()), enrich.Config{
		GroupSize:     cfg.GroupSize,
		LookupTimeout: cfg.LookupTimeout(),
	}, log)
}
