// Package pipeline runs one photo through vision extraction and catalog
// enrichment.
package pipeline

import (
	"context"
	"fmt"

	"shelfsmart/internal/book"
)

// Stage names the step a run failed in.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageVision  Stage = "vision"
	StageEnrich  Stage = "enrich"
)

// Source identifies the photo to process. ImageURL wins when both are set.
type Source struct {
	ImageID  string
	ImageURL string
}

// FatalError aborts a run. No partial results accompany it.
type FatalError struct {
	Stage Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

type Extractor interface {
	Extract(ctx context.Context, imageURL string) ([]book.Candidate, error)
}

type Enricher interface {
	EnrichAll(ctx context.Context, candidates []book.Candidate) ([]book.Enriched, error)
}

// Resolver turns a stored image id into a URL a vision backend can read.
type Resolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}
