package http

import (
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository/memory"
	"LinkVault-Backend/pkg/useragent"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestShareHandler(storage *memory.MemStorage) *ShareHandler {
	return NewShareHandler(storage, useragent.NewClassifier(), zap.NewNop())
}

func TestGetSharedCountsView(t *testing.T) {
	storage := memory.New()
	handler := newTestShareHandler(storage)

	link := seedStoredLink(t, storage, "u1", 0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/share/"+link.CustomSlug, nil)
	handler.GetShared(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SharedLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, link.ID, resp.ID)
	assert.Equal(t, int64(1), resp.Views)

	stored, err := storage.GetLinkByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Views)
}

func TestGetSharedUnknownSlug(t *testing.T) {
	handler := newTestShareHandler(memory.New())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/share/no-such-slug", nil)
	handler.GetShared(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSharedIncludesFilePayload(t *testing.T) {
	storage := memory.New()
	handler := newTestShareHandler(storage)

	link := &domain.Link{
		ID:         "file-link",
		UserID:     "u1",
		Title:      "Report",
		Category:   domain.CategoryWork,
		IsFile:     true,
		Files:      []domain.LinkFile{{ID: "f1", Name: "report.pdf", MimeType: "application/pdf", Size: 3, Data: "data:application/pdf;base64,AAA"}},
		CustomSlug: "report",
	}
	require.NoError(t, storage.SaveLink(context.Background(), link))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/share/report", nil)
	handler.GetShared(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SharedLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "report.pdf", resp.Files[0].Name)
	assert.Equal(t, "data:application/pdf;base64,AAA", resp.Files[0].Data)
}

func TestTrackClick(t *testing.T) {
	storage := memory.New()
	handler := newTestShareHandler(storage)

	link := seedStoredLink(t, storage, "u1", 0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/track/"+link.ID, nil)
	handler.TrackClick(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := storage.GetLinkByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Clicks)
}

func TestTrackClickUnknownLink(t *testing.T) {
	handler := newTestShareHandler(memory.New())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/track/no-such-id", nil)
	handler.TrackClick(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
