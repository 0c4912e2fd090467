package http

import (
	"LinkVault-Backend/internal/auth"
	"LinkVault-Backend/internal/service"
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// CleanupHandler exposes the retention sweeper over HTTP: a cron-triggered
// global sweep and a per-user sweep for interactive use.
type CleanupHandler struct {
	cleanup    *service.CleanupService
	cronSecret string
	log        *zap.Logger
}

// NewCleanupHandler creates a new cleanup handler.
func NewCleanupHandler(cleanup *service.CleanupService, cronSecret string, log *zap.Logger) *CleanupHandler {
	return &CleanupHandler{
		cleanup:    cleanup,
		cronSecret: cronSecret,
		log:        log,
	}
}

// SweepResponse reports the outcome of a retention pass.
type SweepResponse struct {
	Deleted int64 `json:"deleted"`
}

// RunSweep handles GET /api/cleanup, the scheduler-facing trigger. It is
// authenticated with a shared secret instead of a user token.
func (h *CleanupHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeError(w, "Cleanup endpoint is not configured", http.StatusServiceUnavailable)
		return
	}

	secret := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if secret == "" {
		secret = r.URL.Query().Get("secret")
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cronSecret)) != 1 {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	deleted, err := h.cleanup.SweepExpiredLinks(r.Context())
	if err != nil {
		h.log.Error("retention sweep failed", zap.Error(err))
		writeError(w, "Sweep failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, SweepResponse{Deleted: deleted}, http.StatusOK)
}

// SweepUser handles POST /api/cleanup: runs the retention pass for the
// authenticated user only. A no-op when auto-delete is disabled.
func (h *CleanupHandler) SweepUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	deleted, err := h.cleanup.SweepExpiredLinksForUser(r.Context(), userID)
	if err != nil {
		h.log.Error("retention sweep failed for user", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Sweep failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, SweepResponse{Deleted: deleted}, http.StatusOK)
}
