package account

import (
	"context"
	"errors"
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

func (r *PostgresRepo) GetByUserID(ctx context.Context, userID string) (Account, error) {
	const query = `
	SELECT user_id, email, stripe_customer_id, subscription_status, package, created_at, updated_at
	FROM accounts WHERE user_id = $1
	`
	var a Account
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, userID).Scan(
		&a.UserID, &a.Email, &a.StripeCustomerID, &a.SubscriptionStatus, &a.Package, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("account %s: %w", userID, book.ErrNotFound)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *PostgresRepo) Create(ctx context.Context, userID, email string) (bool, error) {
	const query = `
	INSERT INTO accounts (user_id, email, subscription_status)
	VALUES ($1, $2, 'INACTIVE')
	ON CONFLICT (user_id) DO NOTHING
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, userID, email)
	if err != nil {
		return false, fmt.Errorf("create account: %w: %w", book.ErrPersistence, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepo) UpdateSubscription(ctx context.Context, userID, customerID, pkg, status string) error {
	const query = `
	INSERT INTO accounts (user_id, stripe_customer_id, package, subscription_status)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id) DO UPDATE SET
		stripe_customer_id = EXCLUDED.stripe_customer_id,
		package = EXCLUDED.package,
		subscription_status = EXCLUDED.subscription_status,
		updated_at = now()
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Exec(timeoutCtx, query, userID, customerID, pkg, status); err != nil {
		return fmt.Errorf("update subscription: %w: %w", book.ErrPersistence, err)
	}
	return nil
}

func (r *PostgresRepo) UpdateStatusByCustomer(ctx context.Context, customerID, status string) error {
	const query = `
	UPDATE accounts SET subscription_status = $2, updated_at = now()
	WHERE stripe_customer_id = $1
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, customerID, status)
	if err != nil {
		return fmt.Errorf("update status: %w: %w", book.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %s: %w", customerID, book.ErrNotFound)
	}
	return nil
}
