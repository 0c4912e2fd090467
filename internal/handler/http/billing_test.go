package http

import (
	"LinkVault-Backend/internal/config"
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository/memory"
	"LinkVault-Backend/internal/service"
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

func newTestBillingHandler(storage *memory.MemStorage) *BillingHandler {
	cfg := &config.Stripe{WebhookSecret: testWebhookSecret}
	billing := service.NewBilling(storage, cfg, "https://linkvault.test", zap.NewNop())
	return NewBillingHandler(billing, cfg, zap.NewNop())
}

func signPayload(payload []byte) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, testWebhookSecret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func TestWebhookValidSignature(t *testing.T) {
	storage := memory.New()
	handler := newTestBillingHandler(storage)

	// The api_version differs from the SDK's pinned version on purpose:
	// properly signed events from an endpoint pinned elsewhere must still
	// be accepted.
	payload := []byte(`{
		"id": "evt_1",
		"api_version": "2023-10-16",
		"type": "customer.subscription.created",
		"data": {
			"object": {
				"id": "sub_1",
				"status": "active",
				"metadata": {"userId": "u1"}
			}
		}
	}`)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload))
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	acc, err := storage.GetAccount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPremium, acc.Plan)
}

func TestWebhookMissingSignature(t *testing.T) {
	handler := newTestBillingHandler(memory.New())

	payload := []byte(`{"id": "evt_1", "type": "customer.subscription.created"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookTamperedPayload(t *testing.T) {
	storage := memory.New()
	handler := newTestBillingHandler(storage)

	signed := []byte(`{"id": "evt_1", "type": "customer.subscription.created"}`)
	tampered := []byte(`{"id": "evt_2", "type": "customer.subscription.deleted"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(tampered))
	req.Header.Set("Stripe-Signature", signPayload(signed))
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A rejected payload must never be interpreted.
	_, err := storage.GetAccount(context.Background(), "u1")
	require.Error(t, err)
}

func TestWebhookWrongMethod(t *testing.T) {
	handler := newTestBillingHandler(memory.New())

	req := httptest.NewRequest(http.MethodGet, "/api/stripe/webhook", nil)
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
