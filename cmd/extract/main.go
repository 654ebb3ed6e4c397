package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shelfsmart/internal/app"
	"shelfsmart/internal/book"
	"shelfsmart/internal/catalog"
	"shelfsmart/internal/config"
	"shelfsmart/internal/logger"
	"shelfsmart/internal/pipeline"
	"shelfsmart/internal/upload"
	"shelfsmart/internal/vision"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	image  string
	format string
	save   bool
	env    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "extract",
		Short:        "Identify the books on a shelf photo",
		Long:         "Reads titles and authors off a local image or URL, enriches them from the catalog and prints the result.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.image, "image", "", "Image file path, http(s) URL or data URL (required)")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json or csv")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Persist the results to the database")
	cmd.Flags().StringVar(&opts.env, "env", config.GetEnv(), "Configuration environment")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	if opts.format != "json" && opts.format != "csv" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cfg, err := config.Load(opts.env)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(opts.env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	imageURL, err := imageSource(opts.image)
	if err != nil {
		return err
	}

	// A URL given on the command line is the operator's own choice.
	var trusted []string
	if !upload.IsDataURL(imageURL) {
		trusted = append(trusted, imageURL)
	}

	model, err := app.NewVisionModel(ctx, cfg.Vision, trusted)
	if err != nil {
		return err
	}
	lookup, closeCatalog, err := app.NewCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCatalog()

	svc := pipeline.NewService(nil,
		vision.NewExtractor(model, cfg.Vision.MaxTokens, log.Named("vision")),
		app.NewEnricher(lookup, cfg.Catalog, log.Named("enrich")),
		pipeline.Config{VisionTimeout: cfg.Vision.Timeout(), TrustedURLPrefixes: trusted},
		log.Named("pipeline"),
	)

	books, err := svc.Run(ctx, pipeline.Source{ImageURL: imageURL})
	if err != nil {
		return err
	}

	if opts.save && len(books) > 0 {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		saved, err := catalog.NewService(catalog.NewPostgresRepo(pool, cfg.Database.QueryTimeout())).SaveMany(ctx, books)
		if err != nil {
			return err
		}
		log.Info("books saved", zap.Int("count", len(saved)))
	}

	return write(out, opts.format, books)
}

// imageSource passes URLs through and inlines local files as data URLs.
func imageSource(arg string) (string, error) {
	if upload.IsDataURL(arg) || strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return arg, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%s is %s, not an image: %w", arg, mt.String(), book.ErrInvalidInput)
	}
	return upload.EncodeDataURL(mt.String(), data), nil
}

func write(out io.Writer, format string, books []book.Enriched) error {
	if format == "csv" {
		now := time.Now()
		rows := make([]book.Book, len(books))
		for i, b := range books {
			rows[i] = book.Book{Title: b.Title, Author: b.Author, ISBN10: b.ISBN10, ISBN13: b.ISBN13, CreatedAt: now}
		}
		return catalog.WriteCSV(out, rows)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(books)
}
