// Package enrich resolves vision candidates against a book catalog.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shelfsmart/internal/book"
	"shelfsmart/internal/metrics"
)

const (
	DefaultGroupSize     = 5
	DefaultGroupDelay    = time.Second
	DefaultLookupTimeout = 10 * time.Second
)

// Catalog looks up the single best match for a title and optional author.
// A nil match with a nil error means the search returned nothing.
type Catalog interface {
	FindBook(ctx context.Context, title, author string) (*book.Match, error)
}

// Outcome is the result for one candidate. A non-nil Cause means the lookup
// failed and Book holds the candidate's own values.
type Outcome struct {
	Book  book.Enriched
	Cause error
}

func (o Outcome) Recovered() bool { return o.Cause != nil }

type Config struct {
	GroupSize     int
	LookupTimeout time.Duration
}

type Enricher struct {
	catalog       Catalog
	pacer         Pacer
	groupSize     int
	lookupTimeout time.Duration
	logger        *zap.Logger
}

func NewEnricher(catalog Catalog, pacer Pacer, cfg Config, logger *zap.Logger) *Enricher {
	if cfg.GroupSize <= 0 {
		cfg.GroupSize = DefaultGroupSize
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	if pacer == nil {
		pacer = FixedDelay(DefaultGroupDelay)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		catalog:       catalog,
		pacer:         pacer,
		groupSize:     cfg.GroupSize,
		lookupTimeout: cfg.LookupTimeout,
		logger:        logger,
	}
}

// EnrichAll returns one record per candidate, in input order. Lookup failures
// never surface here; the only error is a cancelled context between groups.
func (e *Enricher) EnrichAll(ctx context.Context, candidates []book.Candidate) ([]book.Enriched, error) {
	outcomes, err := e.Resolve(ctx, candidates)
	if err != nil {
		return nil, err
	}
	out := make([]book.Enriched, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Book
	}
	return out, nil
}

// Resolve looks candidates up in groups of groupSize. Lookups within a group
// run concurrently and the group is joined before the pacer is consulted for
// the next one. Results are placed by input index.
func (e *Enricher) Resolve(ctx context.Context, candidates []book.Candidate) ([]Outcome, error) {
	out := make([]Outcome, len(candidates))

	for start := 0; start < len(candidates); start += e.groupSize {
		if start > 0 {
			if err := e.pacer.Wait(ctx); err != nil {
				return nil, fmt.Errorf("wait before lookup group at %d: %w", start, err)
			}
		}

		end := min(start+e.groupSize, len(candidates))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = e.enrichOne(ctx, candidates[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	return out, nil
}

func (e *Enricher) enrichOne(ctx context.Context, c book.Candidate) (o Outcome) {
	if strings.TrimSpace(c.Title) == "" {
		metrics.CatalogLookupsTotal.WithLabelValues("skipped").Inc()
		return Outcome{Book: book.Fallback(c)}
	}

	defer func() {
		if r := recover(); r != nil {
			o = e.recovered(c, fmt.Errorf("catalog lookup panic: %v", r))
		}
	}()

	lookupCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	m, err := e.catalog.FindBook(lookupCtx, c.Title, c.Author)
	if err != nil {
		return e.recovered(c, err)
	}
	if m == nil {
		metrics.CatalogLookupsTotal.WithLabelValues("miss").Inc()
		return Outcome{Book: book.Fallback(c)}
	}

	metrics.CatalogLookupsTotal.WithLabelValues("match").Inc()
	return Outcome{Book: Merge(c, m)}
}

func (e *Enricher) recovered(c book.Candidate, cause error) Outcome {
	metrics.CatalogLookupsTotal.WithLabelValues("recovered").Inc()
	e.logger.Warn("catalog lookup failed, keeping candidate values",
		zap.String("title", c.Title),
		zap.String("author", c.Author),
		zap.Error(cause),
	)
	return Outcome{Book: book.Fallback(c), Cause: cause}
}

// Merge applies a catalog match to a candidate. Match fields win when set.
// The first ISBN_10 and the first ISBN_13 identifier are kept.
func Merge(c book.Candidate, m *book.Match) book.Enriched {
	out := book.Fallback(c)
	if m.Title != "" {
		out.Title = m.Title
	}
	if authors := strings.Join(m.Authors, ", "); authors != "" {
		out.Author = authors
	}

	for _, id := range m.Identifiers {
		if id.Value == "" {
			continue
		}
		switch id.Scheme {
		case book.SchemeISBN10:
			if out.ISBN10 == nil {
				v := id.Value
				out.ISBN10 = &v
			}
		case book.SchemeISBN13:
			if out.ISBN13 == nil {
				v := id.Value
				out.ISBN13 = &v
			}
		}
	}
	return out
}
