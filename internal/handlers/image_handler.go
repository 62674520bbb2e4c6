package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Glaucio24/Redtea/internal/middleware"
	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/services"
)

type ImageHandler struct {
	files     services.FileStore
	maxSizeMB int64
}

func NewImageHandler(files services.FileStore, maxSizeMB int64) *ImageHandler {
	return &ImageHandler{
		files:     files,
		maxSizeMB: maxSizeMB,
	}
}

func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.GetSubjectID(r.Context())
	if subjectID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	// Limit request body size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSizeMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxSizeMB * 1024 * 1024); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("File too large or invalid form data"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("No image file provided"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !isValidImageType(contentType) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid image type. Allowed: JPEG, PNG, GIF, WebP"))
		return
	}

	response, err := h.files.Save(r.Context(), subjectID, header.Filename, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to upload image"))
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(response))
}

func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.GetSubjectID(r.Context())
	if subjectID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ref := chi.URLParam(r, "imageId")

	// Only the uploader may remove a blob by reference.
	if err := h.files.DeleteOwned(r.Context(), subjectID, ref); err != nil {
		if errors.Is(err, services.ErrImageNotFound) {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Image not found"))
			return
		}
		if errors.Is(err, services.ErrUnauthorized) {
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Forbidden"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete image"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Image deleted successfully"}))
}

func isValidImageType(contentType string) bool {
	validTypes := map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	return validTypes[contentType]
}
