package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeServiceError maps service sentinels onto HTTP statuses. fallback
// is the message for unexpected failures.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case services.ErrUnauthenticated:
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthenticated"))
	case services.ErrUnauthorized:
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Unauthorized"))
	case services.ErrUserNotFound:
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("User not found"))
	case services.ErrPostNotFound:
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Post not found"))
	case services.ErrCommentNotFound:
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Comment not found"))
	case services.ErrImageNotFound:
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Image not found"))
	case services.ErrNotApproved:
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Account is not approved"))
	default:
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(fallback))
	}
}
