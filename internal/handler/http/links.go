package http

import (
	"LinkVault-Backend/internal/auth"
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository"
	"LinkVault-Backend/internal/service"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LinksHandler handles link CRUD requests.
type LinksHandler struct {
	storage     repository.Storage
	links       *service.LinkService
	entitlement *service.EntitlementService
	log         *zap.Logger
}

// NewLinksHandler creates a new links handler.
func NewLinksHandler(storage repository.Storage, links *service.LinkService, entitlement *service.EntitlementService, log *zap.Logger) *LinksHandler {
	return &LinksHandler{
		storage:     storage,
		links:       links,
		entitlement: entitlement,
		log:         log,
	}
}

// CreateLinkRequest is the request body for link creation.
type CreateLinkRequest struct {
	Title       string            `json:"title"`
	URL         string            `json:"url,omitempty"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Image       *string           `json:"image,omitempty"`
	IsFile      bool              `json:"is_file,omitempty"`
	Files       []domain.LinkFile `json:"files,omitempty"`
	CustomSlug  string            `json:"custom_slug,omitempty"`
}

// FileInfo is a file attachment without its payload.
type FileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// LinkInfo is the serialized form of a link in API responses.
type LinkInfo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url,omitempty"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Image       *string    `json:"image,omitempty"`
	IsFile      bool       `json:"is_file"`
	Files       []FileInfo `json:"files,omitempty"`
	CustomSlug  string     `json:"custom_slug"`
	ShareURL    string     `json:"share_url"`
	Views       int64      `json:"views"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   string     `json:"created_at"`
}

// ListLinksResponse is the response for the link listing endpoint. The
// entitlement snapshot rides along so the frontend can render quota state
// without a second request.
type ListLinksResponse struct {
	Links  []LinkInfo          `json:"links"`
	Limits *service.UserLimits `json:"limits"`
}

// limitReachedBody is the 403 payload for quota rejections. ShowAdOption
// tells the client whether watching a rewarded ad can unblock creation.
type limitReachedBody struct {
	Error        string `json:"error"`
	Limit        int64  `json:"limit"`
	Used         int64  `json:"used"`
	ShowAdOption bool   `json:"showAdOption"`
}

// CreateLink handles POST /api/links.
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid create link request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	link, err := h.links.Create(r.Context(), userID, service.CreateLinkInput{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Category:    req.Category,
		Image:       req.Image,
		IsFile:      req.IsFile,
		Files:       req.Files,
		CustomSlug:  req.CustomSlug,
	})
	if err != nil {
		var limitErr *service.LimitReachedError
		var sizeErr *service.FileSizeLimitError
		switch {
		case errors.As(err, &limitErr):
			writeJSON(w, limitReachedBody{
				Error:        limitErr.Error(),
				Limit:        limitErr.Limit,
				Used:         limitErr.Used,
				ShowAdOption: true,
			}, http.StatusForbidden)
		case errors.As(err, &sizeErr):
			writeError(w, sizeErr.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, repository.ErrSlugExists):
			writeError(w, "Custom URL already taken", http.StatusBadRequest)
		case errors.Is(err, domain.ErrLinkTitleRequired),
			errors.Is(err, domain.ErrLinkURLRequired),
			errors.Is(err, domain.ErrLinkFilesRequired),
			errors.Is(err, domain.ErrInvalidCategory):
			writeError(w, err.Error(), http.StatusBadRequest)
		default:
			h.log.Error("failed to create link", zap.String("user_id", userID), zap.Error(err))
			writeError(w, "Failed to create link", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, toLinkInfo(link), http.StatusCreated)
}

// ListLinks handles GET /api/links.
func (h *LinksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	links, err := h.storage.ListUserLinks(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to list user links", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to retrieve links", http.StatusInternalServerError)
		return
	}

	limits, err := h.entitlement.GetUserLimits(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to get user limits", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Failed to retrieve limits", http.StatusInternalServerError)
		return
	}

	linkInfos := make([]LinkInfo, len(links))
	for i, link := range links {
		linkInfos[i] = toLinkInfo(link)
	}

	writeJSON(w, ListLinksResponse{Links: linkInfos, Limits: limits}, http.StatusOK)
}

// UpdateLinkRequest is the request body for a link update. Absent fields
// keep their current values.
type UpdateLinkRequest struct {
	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Image       *string `json:"image,omitempty"`
	CustomSlug  *string `json:"custom_slug,omitempty"`
}

// UpdateLink handles PUT /api/links/{id}.
func (h *LinksHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 || pathParts[2] == "" {
		writeError(w, "Link ID is required", http.StatusBadRequest)
		return
	}
	linkID := pathParts[2]

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid update link request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	link, err := h.links.Update(r.Context(), userID, linkID, service.UpdateLinkInput{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Category:    req.Category,
		Image:       req.Image,
		CustomSlug:  req.CustomSlug,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLinkNotFound):
			writeError(w, "Link not found", http.StatusNotFound)
		case errors.Is(err, service.ErrNotLinkOwner):
			writeError(w, "Access denied", http.StatusForbidden)
		case errors.Is(err, repository.ErrSlugExists):
			writeError(w, "Custom URL already taken", http.StatusBadRequest)
		case errors.Is(err, domain.ErrLinkTitleRequired),
			errors.Is(err, domain.ErrLinkURLRequired),
			errors.Is(err, domain.ErrInvalidCategory):
			writeError(w, err.Error(), http.StatusBadRequest)
		default:
			h.log.Error("failed to update link", zap.String("link_id", linkID), zap.Error(err))
			writeError(w, "Failed to update link", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, toLinkInfo(link), http.StatusOK)
}

// DeleteLink handles DELETE /api/links/{id}. Deleting a link never lowers
// the cumulative link counter, so it does not free up free-plan quota.
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 || pathParts[2] == "" {
		writeError(w, "Link ID is required", http.StatusBadRequest)
		return
	}
	linkID := pathParts[2]

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	link, err := h.storage.GetLinkByID(r.Context(), linkID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to get link for deletion", zap.String("link_id", linkID), zap.Error(err))
		writeError(w, "Failed to retrieve link", http.StatusInternalServerError)
		return
	}

	if link.UserID != userID {
		writeError(w, "Access denied", http.StatusForbidden)
		return
	}

	if err := h.storage.DeleteLink(r.Context(), linkID); err != nil {
		h.log.Error("failed to delete link", zap.String("link_id", linkID), zap.Error(err))
		writeError(w, "Failed to delete link", http.StatusInternalServerError)
		return
	}

	h.log.Info("deleted link", zap.String("link_id", linkID), zap.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

func toLinkInfo(link *domain.Link) LinkInfo {
	info := LinkInfo{
		ID:          link.ID,
		Title:       link.Title,
		URL:         link.URL,
		Description: link.Description,
		Category:    link.Category,
		Image:       link.Image,
		IsFile:      link.IsFile,
		CustomSlug:  link.CustomSlug,
		ShareURL:    link.ShareURL,
		Views:       link.Views,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt.Format(time.RFC3339),
	}
	for _, f := range link.Files {
		info.Files = append(info.Files, FileInfo{
			ID:   f.ID,
			Name: f.Name,
			Type: f.MimeType,
			Size: f.Size,
		})
	}
	return info
}
