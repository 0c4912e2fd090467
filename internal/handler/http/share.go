package http

import (
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository"
	"LinkVault-Backend/pkg/useragent"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ShareHandler serves the public (unauthenticated) share and click-tracking
// endpoints.
type ShareHandler struct {
	storage    repository.Storage
	classifier *useragent.Classifier
	log        *zap.Logger
}

// NewShareHandler creates a new share handler.
func NewShareHandler(storage repository.Storage, classifier *useragent.Classifier, log *zap.Logger) *ShareHandler {
	return &ShareHandler{
		storage:    storage,
		classifier: classifier,
		log:        log,
	}
}

// SharedFile is a file attachment on the public share page, payload included.
type SharedFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"type"`
	Size     int64  `json:"size"`
	Data     string `json:"data,omitempty"`
}

// SharedLinkResponse is the public view of a shared link.
type SharedLinkResponse struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category"`
	Image       *string      `json:"image,omitempty"`
	IsFile      bool         `json:"is_file"`
	Files       []SharedFile `json:"files,omitempty"`
	Views       int64        `json:"views"`
}

// GetShared handles GET /api/share/{slug}: resolves a link by slug and
// counts the view. The increment is fire-and-forget; a counter failure must
// not break the share page.
func (h *ShareHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/api/share/")
	if slug == "" || strings.Contains(slug, "/") {
		writeError(w, "Slug is required", http.StatusBadRequest)
		return
	}

	link, err := h.storage.GetLinkBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to get shared link", zap.String("slug", slug), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.storage.IncrementViews(r.Context(), link.ID); err != nil {
		h.log.Error("failed to increment views", zap.String("link_id", link.ID), zap.Error(err))
	} else {
		link.Views++
	}

	h.log.Info("served shared link",
		zap.String("slug", slug),
		zap.String("ip", extractIPAddress(r)),
		zap.String("device_type", h.classifier.DeviceType(r.UserAgent())))

	writeJSON(w, toSharedResponse(link), http.StatusOK)
}

// TrackClick handles POST /api/track/{id}: counts a click-through on a
// shared link's target.
func (h *ShareHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	linkID := strings.TrimPrefix(r.URL.Path, "/api/track/")
	if linkID == "" || strings.Contains(linkID, "/") {
		writeError(w, "Link ID is required", http.StatusBadRequest)
		return
	}

	if err := h.storage.IncrementClicks(r.Context(), linkID); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to increment clicks", zap.String("link_id", linkID), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.log.Debug("tracked click",
		zap.String("link_id", linkID),
		zap.String("device_type", h.classifier.DeviceType(r.UserAgent())))

	writeJSON(w, map[string]bool{"tracked": true}, http.StatusOK)
}

func toSharedResponse(link *domain.Link) SharedLinkResponse {
	resp := SharedLinkResponse{
		ID:          link.ID,
		Title:       link.Title,
		URL:         link.URL,
		Description: link.Description,
		Category:    link.Category,
		Image:       link.Image,
		IsFile:      link.IsFile,
		Views:       link.Views,
	}
	for _, f := range link.Files {
		resp.Files = append(resp.Files, SharedFile{
			ID:       f.ID,
			Name:     f.Name,
			MimeType: f.MimeType,
			Size:     f.Size,
			Data:     f.Data,
		})
	}
	return resp
}

// extractIPAddress pulls the client IP out of the request, honoring
// forwarding proxy headers.
func extractIPAddress(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
