package http

import (
	"LinkVault-Backend/internal/auth"
	"LinkVault-Backend/internal/config"
	"LinkVault-Backend/internal/service"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Stripe caps webhook payloads at 64KB; anything larger is not a real event.
const maxWebhookBody = 65536

// BillingHandler handles checkout, billing portal and webhook requests.
type BillingHandler struct {
	billing *service.BillingService
	cfg     *config.Stripe
	log     *zap.Logger
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(billing *service.BillingService, cfg *config.Stripe, log *zap.Logger) *BillingHandler {
	return &BillingHandler{
		billing: billing,
		cfg:     cfg,
		log:     log,
	}
}

// CheckoutRequest is the request body for checkout session creation.
type CheckoutRequest struct {
	Annual bool `json:"annual,omitempty"`
}

// CheckoutResponse carries the checkout session redirect target.
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PortalResponse carries the billing portal redirect target.
type PortalResponse struct {
	URL string `json:"url"`
}

// CreateCheckout handles POST /api/stripe/checkout.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}
	email, _ := auth.GetUserEmailFromContext(r.Context())

	var req CheckoutRequest
	if r.Body != nil {
		// An empty body means a monthly subscription.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	priceID := h.cfg.PriceMonthly
	if req.Annual {
		priceID = h.cfg.PriceAnnual
	}
	if priceID == "" {
		writeError(w, "Billing is not configured", http.StatusServiceUnavailable)
		return
	}

	sessionID, url, err := h.billing.CreateCheckoutSession(r.Context(), userID, email, priceID, req.Annual)
	if err != nil {
		h.log.Error("failed to create checkout session", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to create checkout session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, CheckoutResponse{SessionID: sessionID, URL: url}, http.StatusOK)
}

// CreatePortal handles POST /api/stripe/customer-portal.
func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	url, err := h.billing.CreatePortalSession(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSubscription) {
			writeError(w, "No active subscription found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to create portal session", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to create portal session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, PortalResponse{URL: url}, http.StatusOK)
}

// Webhook handles POST /api/stripe/webhook. Signature verification is
// mandatory: unsigned or badly signed payloads get a 400 and are never
// interpreted. Handler failures return a 500 so the provider redelivers.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	event, err := h.billing.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.log.Warn("webhook signature verification failed", zap.Error(err))
		writeError(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	if err := h.billing.ApplyEvent(r.Context(), event); err != nil {
		h.log.Error("failed to apply billing event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		writeError(w, "Failed to process event", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"received": true}, http.StatusOK)
}
