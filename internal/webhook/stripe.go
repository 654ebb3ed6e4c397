package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"shelfsmart/internal/account"
	"shelfsmart/internal/book"
	"shelfsmart/internal/httpx"
)

// UnknownPackage is recorded for price ids missing from the price table.
const UnknownPackage = "Unknown"

// Sessions fetches the price a checkout session was paid with.
type Sessions interface {
	FirstPriceID(ctx context.Context, sessionID string) (string, error)
}

// StripeSessions reads checkout sessions through the Stripe API.
type StripeSessions struct {
	api *client.API
}

func NewStripeSessions(secretKey string) *StripeSessions {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeSessions{api: api}
}

func (s *StripeSessions) FirstPriceID(ctx context.Context, sessionID string) (string, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return "", err
	}
	if sess.LineItems == nil || len(sess.LineItems.Data) == 0 {
		return "", nil
	}
	item := sess.LineItems.Data[0]
	if item.Price == nil {
		return "", nil
	}
	return item.Price.ID, nil
}

type StripeHandler struct {
	secret   string
	sessions Sessions
	prices   map[string]string
	accounts Accounts
	logger   *zap.Logger
}

// NewStripeHandler maps checkout price ids to package names with prices.
func NewStripeHandler(secret string, sessions Sessions, prices map[string]string, accounts Accounts, logger *zap.Logger) *StripeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeHandler{secret: secret, sessions: sessions, prices: prices, accounts: accounts, logger: logger}
}

func (h *StripeHandler) packageFor(priceID string) string {
	if name, ok := h.prices[priceID]; ok {
		return name
	}
	return UnknownPackage
}

// Handle handles POST /v1/webhooks/stripe
func (h *StripeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(r)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Error reading webhook", nil)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.logger.Warn("stripe webhook verification failed", zap.Error(err))
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed", nil)
		return
	}

	log := h.logger.With(zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))

	switch event.Type {
	case "checkout.session.completed":
		h.checkoutCompleted(w, r, log, event)
		return
	case "customer.subscription.updated", "customer.subscription.deleted":
		h.subscriptionChanged(r.Context(), log, event)
	default:
		log.Info("unhandled stripe event")
	}

	httpx.JSONSuccess(w, r, map[string]bool{"received": true}, nil)
}

func (h *StripeHandler) checkoutCompleted(w http.ResponseWriter, r *http.Request, log *zap.Logger, event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		log.Error("decode checkout session", zap.Error(err))
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid checkout session", nil)
		return
	}

	userID := sess.Metadata["userId"]
	var customerID string
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	if userID == "" || customerID == "" {
		log.Error("checkout session missing user or customer", zap.String("session_id", sess.ID))
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Missing userId or customerId in session", nil)
		return
	}
	log = log.With(zap.String("user_id", userID), zap.String("customer_id", customerID))

	priceID, err := h.sessions.FirstPriceID(r.Context(), sess.ID)
	if err != nil {
		log.Error("retrieve checkout session", zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Webhook processing failed", nil)
		return
	}
	if priceID == "" {
		log.Error("checkout session has no price", zap.String("session_id", sess.ID))
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Price ID missing from line items", nil)
		return
	}

	pkg := h.packageFor(priceID)
	if pkg == UnknownPackage {
		log.Warn("unrecognized price id", zap.String("price_id", priceID))
	}

	if err := h.accounts.Activate(r.Context(), userID, customerID, pkg); err != nil {
		log.Error("activate account", zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Webhook processing failed", nil)
		return
	}

	log.Info("account activated", zap.String("package", pkg))
	httpx.JSONSuccess(w, r, map[string]bool{"received": true}, nil)
}

// subscriptionChanged mirrors the subscription lifecycle onto the account.
// Failures are logged; the event is still acknowledged.
func (h *StripeHandler) subscriptionChanged(ctx context.Context, log *zap.Logger, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		log.Error("decode subscription", zap.Error(err))
		return
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		log.Warn("subscription without customer")
		return
	}

	status := account.StatusInactive
	if event.Type == "customer.subscription.updated" &&
		(sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing) {
		status = account.StatusActive
	}

	err := h.accounts.SetCustomerStatus(ctx, sub.Customer.ID, status)
	switch {
	case errors.Is(err, book.ErrNotFound):
		log.Warn("no account for customer", zap.String("customer_id", sub.Customer.ID))
	case err != nil:
		log.Error("update subscription status", zap.Error(err))
	default:
		log.Info("subscription status updated", zap.String("customer_id", sub.Customer.ID), zap.String("status", status))
	}
}
