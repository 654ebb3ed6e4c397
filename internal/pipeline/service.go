package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shelfsmart/internal/book"
	"shelfsmart/internal/metrics"
	"shelfsmart/internal/upload"
)

const DefaultVisionTimeout = 60 * time.Second

type Config struct {
	VisionTimeout time.Duration
	// TrustedURLPrefixes lists the http(s) prefixes a caller-supplied image
	// URL may start with. Data URLs are always accepted when they hold an image.
	TrustedURLPrefixes []string
}

type Service struct {
	resolver  Resolver
	extractor Extractor
	enricher  Enricher
	cfg       Config
	logger    *zap.Logger
}

func NewService(resolver Resolver, extractor Extractor, enricher Enricher, cfg Config, logger *zap.Logger) *Service {
	if cfg.VisionTimeout <= 0 {
		cfg.VisionTimeout = DefaultVisionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver:  resolver,
		extractor: extractor,
		enricher:  enricher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run resolves the image, extracts candidates, enriches them and tags every
// record with src.ImageID. Steps run strictly in that order. An image with no
// readable books returns an empty slice without touching the catalog.
func (s *Service) Run(ctx context.Context, src Source) (out []book.Enriched, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		metrics.PipelineRunsTotal.WithLabelValues(status).Inc()
		s.logger.Info("extraction run finished",
			zap.String("image_id", src.ImageID),
			zap.String("status", status),
			zap.Int("books", len(out)),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	imageURL, err := s.resolve(ctx, src)
	if err != nil {
		return nil, &FatalError{Stage: StageResolve, Err: err}
	}

	visionCtx, cancel := context.WithTimeout(ctx, s.cfg.VisionTimeout)
	candidates, err := s.extractor.Extract(visionCtx, imageURL)
	cancel()
	if err != nil {
		return nil, &FatalError{Stage: StageVision, Err: err}
	}
	if len(candidates) == 0 {
		return []book.Enriched{}, nil
	}

	enriched, err := s.enricher.EnrichAll(ctx, candidates)
	if err != nil {
		return nil, &FatalError{Stage: StageEnrich, Err: err}
	}

	for i := range enriched {
		enriched[i].ImageID = src.ImageID
	}
	return enriched, nil
}

func (s *Service) resolve(ctx context.Context, src Source) (string, error) {
	switch {
	case src.ImageURL != "":
		if err := upload.CheckImageRef(src.ImageURL, s.cfg.TrustedURLPrefixes); err != nil {
			return "", err
		}
		return src.ImageURL, nil
	case src.ImageID != "":
		if s.resolver == nil {
			return "", fmt.Errorf("no image store configured for %q: %w", src.ImageID, book.ErrInvalidInput)
		}
		return s.resolver.Resolve(ctx, src.ImageID)
	default:
		return "", fmt.Errorf("image url or image id is required: %w", book.ErrInvalidInput)
	}
}
