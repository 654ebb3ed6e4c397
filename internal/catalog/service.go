package catalog

import (
	"context"
	"fmt"
	"io"

	"shelfsmart/internal/book"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Save(ctx context.Context, b book.Enriched) (book.Book, error) {
	return s.repo.Insert(ctx, b)
}

// SaveMany stores books atomically. An empty batch is a no-op.
func (s *Service) SaveMany(ctx context.Context, books []book.Enriched) ([]book.Book, error) {
	if len(books) == 0 {
		return []book.Book{}, nil
	}
	return s.repo.InsertMany(ctx, books)
}

// List returns a page and the cursor for the next one ("" on the last page).
func (s *Service) List(ctx context.Context, cursor string, limit int) ([]book.Book, string, error) {
	after, err := book.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 || limit > book.MaxPageSize {
		limit = book.DefaultPageSize
	}

	books, err := s.repo.List(ctx, book.Page{After: after, Limit: limit})
	if err != nil {
		return nil, "", err
	}
	return books, book.NextCursor(books, limit), nil
}

// Export writes the whole collection as CSV. It returns book.ErrNotFound
// before writing anything when the collection is empty.
func (s *Service) Export(ctx context.Context, w io.Writer) (int, error) {
	books, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(books) == 0 {
		return 0, fmt.Errorf("export: no books: %w", book.ErrNotFound)
	}
	if err := WriteCSV(w, books); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(books), nil
}
