package http

import (
	"LinkVault-Backend/internal/auth"
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SettingsHandler handles per-user preference reads and writes.
type SettingsHandler struct {
	storage repository.Storage
	log     *zap.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(storage repository.Storage, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		storage: storage,
		log:     log,
	}
}

// UpdateSettingsRequest is the request body for a settings write. All fields
// are required: the client always submits the full settings form.
type UpdateSettingsRequest struct {
	Theme              string `json:"theme"`
	Notifications      bool   `json:"notifications"`
	PublicProfile      bool   `json:"public_profile"`
	DefaultCategory    string `json:"default_category"`
	AutoDelete         bool   `json:"auto_delete"`
	AutoDeleteDays     int    `json:"auto_delete_days"`
	LinkExpiration     bool   `json:"link_expiration"`
	LinkExpirationDays int    `json:"link_expiration_days"`
}

// GetSettings handles GET /api/settings. Users who never saved settings get
// the defaults without a record being created.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	settings, err := h.storage.GetSettings(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			writeJSON(w, domain.DefaultSettings(userID), http.StatusOK)
			return
		}
		h.log.Error("failed to get settings", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to retrieve settings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, settings, http.StatusOK)
}

// UpdateSettings handles PUT /api/settings.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid settings request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if req.Theme != "dark" && req.Theme != "light" {
		writeError(w, "Theme must be 'dark' or 'light'", http.StatusBadRequest)
		return
	}
	if !domain.ValidCategory(req.DefaultCategory) {
		writeError(w, "Invalid default category", http.StatusBadRequest)
		return
	}
	if req.AutoDelete && req.AutoDeleteDays <= 0 {
		writeError(w, "auto_delete_days must be positive when auto delete is enabled", http.StatusBadRequest)
		return
	}
	if req.LinkExpiration && req.LinkExpirationDays <= 0 {
		writeError(w, "link_expiration_days must be positive when link expiration is enabled", http.StatusBadRequest)
		return
	}

	settings := &domain.Settings{
		UserID:             userID,
		Theme:              req.Theme,
		Notifications:      req.Notifications,
		PublicProfile:      req.PublicProfile,
		DefaultCategory:    req.DefaultCategory,
		AutoDelete:         req.AutoDelete,
		AutoDeleteDays:     req.AutoDeleteDays,
		LinkExpiration:     req.LinkExpiration,
		LinkExpirationDays: req.LinkExpirationDays,
	}

	if err := h.storage.UpsertSettings(r.Context(), settings); err != nil {
		h.log.Error("failed to save settings", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	h.log.Info("updated settings", zap.String("user_id", userID))
	writeJSON(w, settings, http.StatusOK)
}

// ExportUser identifies the account owner inside an export.
type ExportUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// ExportData is the full data takeout for one user: their settings and all
// their links, stamped with the export time.
type ExportData struct {
	User       ExportUser       `json:"user"`
	Settings   *domain.Settings `json:"settings"`
	Links      []LinkInfo       `json:"links"`
	ExportDate string           `json:"export_date"`
	TotalLinks int              `json:"total_links"`
}

// Export handles GET /api/settings/export: returns everything stored for the
// authenticated user as a downloadable JSON document.
func (h *SettingsHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}
	email, _ := auth.GetUserEmailFromContext(r.Context())

	settings, err := h.storage.GetSettings(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, repository.ErrSettingsNotFound) {
			h.log.Error("failed to get settings for export", zap.String("user_id", userID), zap.Error(err))
			writeError(w, "Failed to export data", http.StatusInternalServerError)
			return
		}
		settings = domain.DefaultSettings(userID)
	}

	links, err := h.storage.ListUserLinks(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to list links for export", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to export data", http.StatusInternalServerError)
		return
	}

	linkInfos := make([]LinkInfo, len(links))
	for i, link := range links {
		linkInfos[i] = toLinkInfo(link)
	}

	now := time.Now().UTC()
	export := ExportData{
		User:       ExportUser{ID: userID, Email: email},
		Settings:   settings,
		Links:      linkInfos,
		ExportDate: now.Format(time.RFC3339),
		TotalLinks: len(linkInfos),
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="linkvault-export-%s.json"`, now.Format("2006-01-02")))
	writeJSON(w, export, http.StatusOK)
}

// DeleteAllResponse reports how many links a full wipe removed.
type DeleteAllResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

// DeleteAll handles DELETE /api/settings/delete-all: removes every link the
// authenticated user owns. The cumulative link counter is untouched, so a
// wipe does not free up free-plan quota.
func (h *SettingsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	deleted, err := h.storage.DeleteAllUserLinks(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to delete all user links", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to delete links", http.StatusInternalServerError)
		return
	}

	h.log.Info("deleted all links for user",
		zap.String("user_id", userID),
		zap.Int64("count", deleted))
	writeJSON(w, DeleteAllResponse{
		Message:      fmt.Sprintf("Successfully deleted %d links", deleted),
		DeletedCount: deleted,
	}, http.StatusOK)
}
