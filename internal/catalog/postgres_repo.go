package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shelfsmart/internal/book"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

const insertSQL = `
	INSERT INTO books (title, author, isbn10, isbn13, image_id)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at`

const selectColumns = `id, title, author, isbn10, isbn13, image_id, created_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertOne(ctx context.Context, q querier, e book.Enriched) (book.Book, error) {
	b := book.Book{
		Title:   e.Title,
		Author:  e.Author,
		ISBN10:  e.ISBN10,
		ISBN13:  e.ISBN13,
		ImageID: nullable(e.ImageID),
	}
	if err := q.QueryRow(ctx, insertSQL, b.Title, b.Author, b.ISBN10, b.ISBN13, b.ImageID).Scan(&b.ID, &b.CreatedAt); err != nil {
		return book.Book{}, fmt.Errorf("insert book %q: %w: %w", e.Title, book.ErrPersistence, err)
	}
	return b, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *PostgresRepo) Insert(ctx context.Context, e book.Enriched) (book.Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return insertOne(timeoutCtx, r.db, e)
}

func (r *PostgresRepo) InsertMany(ctx context.Context, books []book.Enriched) ([]book.Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w: %w", book.ErrPersistence, err)
	}
	defer tx.Rollback(timeoutCtx)

	out := make([]book.Book, 0, len(books))
	for _, e := range books {
		b, err := insertOne(timeoutCtx, tx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}

	if err := tx.Commit(timeoutCtx); err != nil {
		return nil, fmt.Errorf("commit: %w: %w", book.ErrPersistence, err)
	}
	return out, nil
}

func (r *PostgresRepo) ListAll(ctx context.Context) ([]book.Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, `SELECT `+selectColumns+` FROM books ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return scanBooks(rows)
}

// List returns one keyset page ordered newest first.
func (r *PostgresRepo) List(ctx context.Context, p book.Page) ([]book.Book, error) {
	limit := p.Limit
	if limit <= 0 || limit > book.MaxPageSize {
		limit = book.DefaultPageSize
	}

	query := `SELECT ` + selectColumns + ` FROM books ORDER BY created_at DESC, id DESC LIMIT $1`
	args := []any{limit}
	if p.After != nil {
		query = `SELECT ` + selectColumns + ` FROM books
			WHERE (created_at, id) < ($2, $3::uuid)
			ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, p.After.CreatedAt, p.After.AfterID)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books page: %w", err)
	}
	return scanBooks(rows)
}

func scanBooks(rows pgx.Rows) ([]book.Book, error) {
	defer rows.Close()

	books := []book.Book{}
	for rows.Next() {
		var b book.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN10, &b.ISBN13, &b.ImageID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// Ping reports database reachability for readiness checks.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.Ping(timeoutCtx)
}
