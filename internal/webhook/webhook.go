// Package webhook receives signed events from the identity and billing
// providers and applies them to accounts.
package webhook

import (
	"context"
	"io"
	"net/http"
)

// maxPayloadBytes bounds webhook bodies; provider events are small.
const maxPayloadBytes = 1 << 16

// Accounts is the account behaviour webhooks drive.
type Accounts interface {
	Register(ctx context.Context, userID, email string) (bool, error)
	Activate(ctx context.Context, userID, customerID, pkg string) error
	SetCustomerStatus(ctx context.Context, customerID, status string) error
}

func readPayload(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
}
