package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"

	"shelfsmart/internal/httpx"
)

type clerkEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

type ClerkHandler struct {
	wh       *svix.Webhook
	accounts Accounts
	logger   *zap.Logger
}

// NewClerkHandler takes the endpoint's whsec_ signing secret.
func NewClerkHandler(secret string, accounts Accounts, logger *zap.Logger) (*ClerkHandler, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("clerk webhook secret: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClerkHandler{wh: wh, accounts: accounts, logger: logger}, nil
}

// Handle handles POST /v1/webhooks/clerk. Only signature failures are
// reported to the sender; processing errors are logged and acknowledged.
func (h *ClerkHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(r)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Error reading webhook", nil)
		return
	}
	if err := h.wh.Verify(payload, r.Header); err != nil {
		h.logger.Warn("clerk webhook verification failed", zap.Error(err))
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_SIGNATURE", "Error verifying webhook", nil)
		return
	}

	var evt clerkEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("decode clerk event", zap.Error(err))
		httpx.JSONSuccess(w, r, map[string]bool{"received": true}, nil)
		return
	}

	log := h.logger.With(zap.String("event_type", evt.Type), zap.String("user_id", evt.Data.ID))
	log.Info("clerk webhook received")

	if evt.Type == "user.created" && evt.Data.ID != "" {
		var email string
		if len(evt.Data.EmailAddresses) > 0 {
			email = evt.Data.EmailAddresses[0].EmailAddress
		}
		created, err := h.accounts.Register(r.Context(), evt.Data.ID, email)
		switch {
		case err != nil:
			log.Error("create account", zap.Error(err))
		case created:
			log.Info("account created")
		default:
			log.Info("account already exists")
		}
	}

	httpx.JSONSuccess(w, r, map[string]bool{"received": true}, nil)
}
