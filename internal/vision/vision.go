// Package vision turns a bookshelf photo into raw title/author candidates
// using a multimodal model.
package vision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shelfsmart/internal/book"
	"shelfsmart/internal/metrics"
)

// Instruction is the fixed system prompt sent with every image.
const Instruction = "You are a book identification expert. Look at the image and identify every visible " +
	"book spine or cover. Respond in JSON as {\"books\": [...]} where each entry has a 'title' and an " +
	"'author' field. If only the title or only the author is readable, include what you can identify and " +
	"leave the other field empty. If no books can be identified or the image cannot be processed, return " +
	"an empty array."

// Request is a single model call.
type Request struct {
	Instruction string
	ImageURL    string
	MaxTokens   int
}

// Model is a multimodal backend that answers with a JSON document.
type Model interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

type Extractor struct {
	model     Model
	maxTokens int
	logger    *zap.Logger
}

func NewExtractor(model Model, maxTokens int, logger *zap.Logger) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{model: model, maxTokens: maxTokens, logger: logger}
}

// Extract asks the model for the books visible at imageURL.
//
// A backend failure is returned wrapped in book.ErrServiceUnavailable unless the
// backend already classified it. A reply that is JSON but carries no book list
// yields an empty slice and a warning.
func (e *Extractor) Extract(ctx context.Context, imageURL string) ([]book.Candidate, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("image url is required: %w", book.ErrInvalidInput)
	}

	provider := e.model.Name()
	start := time.Now()

	content, err := e.model.Complete(ctx, Request{
		Instruction: Instruction,
		ImageURL:    imageURL,
		MaxTokens:   e.maxTokens,
	})
	metrics.VisionRequestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues(provider, "error").Inc()
		if !errors.Is(err, book.ErrServiceUnavailable) && !errors.Is(err, book.ErrUnparseable) {
			err = fmt.Errorf("%s: %w: %w", provider, book.ErrServiceUnavailable, err)
		}
		return nil, err
	}

	candidates, found, err := Decode(content)
	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues(provider, "unparseable").Inc()
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	if !found {
		e.logger.Warn("vision reply has no book list, treating as empty",
			zap.String("provider", provider),
			zap.Int("content_length", len(content)),
		)
	}

	metrics.VisionRequestsTotal.WithLabelValues(provider, "success").Inc()
	metrics.VisionCandidatesTotal.Add(float64(len(candidates)))
	return candidates, nil
}
