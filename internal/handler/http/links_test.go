package http

import (
	"LinkVault-Backend/internal/auth"
	"LinkVault-Backend/internal/config"
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository/memory"
	"LinkVault-Backend/internal/service"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLinksHandler(storage *memory.MemStorage) *LinksHandler {
	log := zap.NewNop()
	entitlement := service.NewEntitlement(storage, &config.Entitlement{QuotaMode: config.QuotaModeFailOpen}, log)
	links := service.NewLinkService(storage, entitlement, log, "https://linkvault.test")
	return NewLinksHandler(storage, links, entitlement, log)
}

func authedRequest(method, target, body, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
	return req.WithContext(ctx)
}

func seedStoredLink(t *testing.T, storage *memory.MemStorage, userID string, n int) *domain.Link {
	t.Helper()
	link := &domain.Link{
		ID:         fmt.Sprintf("link-%s-%d", userID, n),
		UserID:     userID,
		Title:      fmt.Sprintf("Link %d", n),
		URL:        "https://example.com",
		Category:   domain.CategoryWork,
		CustomSlug: fmt.Sprintf("slug-%s-%d", userID, n),
	}
	require.NoError(t, storage.SaveLink(context.Background(), link))
	return link
}

func TestCreateLinkEndpoint(t *testing.T) {
	handler := newTestLinksHandler(memory.New())

	body := `{"title": "Hello World", "url": "https://example.com"}`
	rec := httptest.NewRecorder()
	handler.CreateLink(rec, authedRequest(http.MethodPost, "/api/links", body, "u1"))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp LinkInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello-world", resp.CustomSlug)
	assert.Equal(t, "https://linkvault.test/share/hello-world", resp.ShareURL)
}

func TestCreateLinkQuotaRejection(t *testing.T) {
	storage := memory.New()
	handler := newTestLinksHandler(storage)

	for i := 0; i < int(domain.FreeMaxLinks); i++ {
		seedStoredLink(t, storage, "u1", i)
	}

	body := `{"title": "One Too Many", "url": "https://example.com"}`
	rec := httptest.NewRecorder()
	handler.CreateLink(rec, authedRequest(http.MethodPost, "/api/links", body, "u1"))

	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp limitReachedBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.Used)
	assert.Equal(t, int64(5), resp.Limit)
	assert.True(t, resp.ShowAdOption)
	assert.NotEmpty(t, resp.Error)
}

func TestCreateLinkFileTooLarge(t *testing.T) {
	handler := newTestLinksHandler(memory.New())

	body := fmt.Sprintf(`{"title": "Big", "is_file": true, "files": [{"name": "big.zip", "type": "application/zip", "size": %d}]}`, 11*1024*1024)
	rec := httptest.NewRecorder()
	handler.CreateLink(rec, authedRequest(http.MethodPost, "/api/links", body, "u1"))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateLinkSlugTaken(t *testing.T) {
	storage := memory.New()
	handler := newTestLinksHandler(storage)

	link := seedStoredLink(t, storage, "u2", 0)

	body := fmt.Sprintf(`{"title": "Mine", "url": "https://example.com", "custom_slug": "%s"}`, link.CustomSlug)
	rec := httptest.NewRecorder()
	handler.CreateLink(rec, authedRequest(http.MethodPost, "/api/links", body, "u1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListLinksIncludesLimits(t *testing.T) {
	storage := memory.New()
	handler := newTestLinksHandler(storage)

	seedStoredLink(t, storage, "u1", 0)
	seedStoredLink(t, storage, "u1", 1)
	seedStoredLink(t, storage, "u2", 0)

	rec := httptest.NewRecorder()
	handler.ListLinks(rec, authedRequest(http.MethodGet, "/api/links", "", "u1"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListLinksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Links, 2)
	require.NotNil(t, resp.Limits)
	assert.Equal(t, int64(2), resp.Limits.LinksUsed)
	assert.True(t, resp.Limits.CanCreateLink)
}

func TestUpdateLinkEndpoint(t *testing.T) {
	storage := memory.New()
	handler := newTestLinksHandler(storage)

	link := seedStoredLink(t, storage, "u1", 0)

	body := `{"title": "Renamed", "custom_slug": "renamed-slug"}`
	rec := httptest.NewRecorder()
	handler.UpdateLink(rec, authedRequest(http.MethodPut, "/api/links/"+link.ID, body, "u1"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp LinkInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Renamed", resp.Title)
	assert.Equal(t, "renamed-slug", resp.CustomSlug)
	assert.Equal(t, "https://linkvault.test/share/renamed-slug", resp.ShareURL)

	// The old slug no longer resolves, the new one does.
	_, err := storage.GetLinkBySlug(context.Background(), link.CustomSlug)
	require.Error(t, err)
	stored, err := storage.GetLinkBySlug(context.Background(), "renamed-slug")
	require.NoError(t, err)
	assert.Equal(t, link.ID, stored.ID)
}

func TestUpdateLinkOwnerCheck(t *testing.T) {
	storage := memory.New()
	handler := newTestLinksHandler(storage)

	link := seedStoredLink(t, storage, "owner", 0)

	rec := httptest.NewRecorder()
	handler.UpdateLink(rec, authedRequest(http.MethodPut, "/api/links/"+link.ID, `{"title": "Hijacked"}`, "intruder"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.UpdateLink(rec, authedRequest(http.MethodPut, "/api/links/missing", `{"title": "Ghost"}`, "owner"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateLinkSlugTaken(t *testing.T) {
	storage := memory.New()
	handler := newTestLinksHandler(storage)

	link := seedStoredLink(t, storage, "u1", 0)
	other := seedStoredLink(t, storage, "u2", 0)

	body := fmt.Sprintf(`{"custom_slug": "%s"}`, other.CustomSlug)
	rec := httptest.NewRecorder()
	handler.UpdateLink(rec, authedRequest(http.MethodPut, "/api/links/"+link.ID, body, "u1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteLinkOwnerCheck(t *testing.T) {
	storage := memory.New()
	handler := newTestLinksHandler(storage)

	link := seedStoredLink(t, storage, "owner", 0)

	rec := httptest.NewRecorder()
	handler.DeleteLink(rec, authedRequest(http.MethodDelete, "/api/links/"+link.ID, "", "intruder"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.DeleteLink(rec, authedRequest(http.MethodDelete, "/api/links/"+link.ID, "", "owner"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.DeleteLink(rec, authedRequest(http.MethodDelete, "/api/links/"+link.ID, "", "owner"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	handler := newTestLinksHandler(memory.New())

	req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	rec := httptest.NewRecorder()
	handler.ListLinks(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
