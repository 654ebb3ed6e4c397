package account

import (
	"context"
	"errors"

	"shelfsmart/internal/book"
)

// Status is what the client needs to route a user.
type Status struct {
	Status   string `json:"status"`
	Redirect string `json:"redirect"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Status maps the stored subscription to a client route. An empty userID
// means the caller is anonymous; an unknown user counts as inactive.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	if userID == "" {
		return Status{Status: StatusUnauthenticated, Redirect: "/"}, nil
	}

	a, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, book.ErrNotFound) {
		return Status{}, err
	}

	status := a.SubscriptionStatus
	if status == "" {
		status = StatusInactive
	}
	if status == StatusActive {
		return Status{Status: status, Redirect: "/upload"}, nil
	}
	return Status{Status: status, Redirect: "/packages"}, nil
}

// Register creates an inactive account for a new user. Repeats are no-ops.
func (s *Service) Register(ctx context.Context, userID, email string) (bool, error) {
	return s.repo.Create(ctx, userID, email)
}

// Activate records a completed checkout.
func (s *Service) Activate(ctx context.Context, userID, customerID, pkg string) error {
	return s.repo.UpdateSubscription(ctx, userID, customerID, pkg, StatusActive)
}

// SetCustomerStatus applies a subscription lifecycle change.
func (s *Service) SetCustomerStatus(ctx context.Context, customerID, status string) error {
	return s.repo.UpdateStatusByCustomer(ctx, customerID, status)
}
