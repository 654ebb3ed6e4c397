// Package catalog persists enriched books and serves the collection.
package catalog

import (
	"context"

	"shelfsmart/internal/book"
)

//go:generate mockgen -source=repository.go -destination=mock_repository_test.go -package=catalog

type Repository interface {
	Insert(ctx context.Context, b book.Enriched) (book.Book, error)
	// InsertMany stores every record or none of them.
	InsertMany(ctx context.Context, books []book.Enriched) ([]book.Book, error)
	// ListAll returns every book, newest first.
	ListAll(ctx context.Context) ([]book.Book, error)
	List(ctx context.Context, p book.Page) ([]book.Book, error)
}
