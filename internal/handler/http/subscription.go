package http

import (
	"LinkVault-Backend/internal/auth"
	"LinkVault-Backend/internal/service"
	"net/http"

	"go.uber.org/zap"
)

// SubscriptionHandler serves entitlement snapshots and rewarded-ad credits.
type SubscriptionHandler struct {
	entitlement *service.EntitlementService
	log         *zap.Logger
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(entitlement *service.EntitlementService, log *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		entitlement: entitlement,
		log:         log,
	}
}

// AdCreditResponse is the response for a rewarded-ad credit grant.
type AdCreditResponse struct {
	Success   bool  `json:"success"`
	AdCredits int64 `json:"ad_credits"`
}

// GetLimits handles GET /api/subscription/limits. Reading limits also
// reconciles the stored usage counters against live data.
func (h *SubscriptionHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	limits, err := h.entitlement.GetUserLimits(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to get user limits", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to retrieve limits", http.StatusInternalServerError)
		return
	}

	writeJSON(w, limits, http.StatusOK)
}

// AwardAdCredit handles POST /api/ads/credit. The client calls it after a
// rewarded ad completes; each call grants the fixed credit amount.
func (h *SubscriptionHandler) AwardAdCredit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	balance, err := h.entitlement.AwardAdCredit(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to award ad credit", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to award ad credit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, AdCreditResponse{Success: true, AdCredits: balance}, http.StatusOK)
}
