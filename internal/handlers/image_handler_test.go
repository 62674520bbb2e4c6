package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/services"
)

func newImageRouter(t *testing.T) *chi.Mux {
	t.Helper()
	handler := NewImageHandler(services.NewImageService(t.TempDir()), 5)

	r := chi.NewRouter()
	r.Use(testAuth)
	r.Post("/api/images", handler.Upload)
	r.Delete("/api/images/{imageId}", handler.Delete)
	return r
}

func uploadImage(t *testing.T, router *chi.Mux, subject string) models.ImageUploadResponse {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("pixels"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Test-Subject", subject)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.ImageUploadResponse
	decodeData(t, rec, &resp)
	return resp
}

func deleteImage(router *chi.Mux, subject, ref string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, "/api/images/"+ref, nil)
	if subject != "" {
		req.Header.Set("X-Test-Subject", subject)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDeleteImageOwnership(t *testing.T) {
	router := newImageRouter(t)
	uploaded := uploadImage(t, router, "user_owner")

	rec := deleteImage(router, "", uploaded.ID)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Another authenticated user cannot remove the blob by guessing its ref.
	rec = deleteImage(router, "user_other", uploaded.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = deleteImage(router, "user_owner", uploaded.ID)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = deleteImage(router, "user_owner", uploaded.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
