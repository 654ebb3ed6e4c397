package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shelfsmart/internal/config"
	"shelfsmart/internal/enrich"
	"shelfsmart/internal/platform/googlebooks"
	"shelfsmart/internal/platform/openai"
	"shelfsmart/internal/platform/openlibrary"
)

func TestNewVisionModel(t *testing.T) {
	m, err := NewVisionModel(context.Background(), config.VisionConfig{Provider: "openai", APIKey: "sk-test"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &openai.Vision{}, m)
	assert.Equal(t, "openai", m.Name())

	m, err = NewVisionModel(context.Background(), config.VisionConfig{Provider: "gemini", APIKey: "g-test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", m.Name())
}

func TestNewCatalog(t *testing.T) {
	var cfg config.Config
	cfg.ApplyDefaults()

	c, closeFn, err := NewCatalog(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &googlebooks.Client{}, c)

	cfg.Catalog.Provider = "openlibrary"
	c, closeFn2, err := NewCatalog(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn2()
	assert.IsType(t, &openlibrary.Client{}, c)
}

func TestNewCatalog_UnreachableCache(t *testing.T) {
	var cfg config.Config
	cfg.ApplyDefaults()
	cfg.Cache.Addr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := NewCatalog(ctx, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewEnricher(t *testing.T) {
	var cfg config.Config
	cfg.ApplyDefaults()
	assert.IsType(t, &enrich.Enricher{}, NewEnricher(nil, cfg.Catalog, zap.NewNop()))
}
