// Package account tracks subscription state for identity-provider users.
package account

import (
	"context"
	"time"
)

// Subscription states.
const (
	StatusActive          = "ACTIVE"
	StatusInactive        = "INACTIVE"
	StatusUnauthenticated = "UNAUTHENTICATED"
)

type Account struct {
	UserID             string    `json:"user_id"`
	Email              string    `json:"email,omitempty"`
	StripeCustomerID   *string   `json:"stripe_customer_id,omitempty"`
	SubscriptionStatus string    `json:"subscription_status"`
	Package            string    `json:"package,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

//go:generate mockgen -source=account.go -destination=mock_repository_test.go -package=account

type Repository interface {
	// GetByUserID returns book.ErrNotFound for unknown users.
	GetByUserID(ctx context.Context, userID string) (Account, error)
	// Create inserts an inactive account. It reports false when one existed.
	Create(ctx context.Context, userID, email string) (bool, error)
	// UpdateSubscription creates the account when it is missing.
	UpdateSubscription(ctx context.Context, userID, customerID, pkg, status string) error
	// UpdateStatusByCustomer returns book.ErrNotFound when no account has the customer id.
	UpdateStatusByCustomer(ctx context.Context, customerID, status string) error
}
