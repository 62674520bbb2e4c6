package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Glaucio24/Redtea/internal/middleware"
	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/services"
)

type UserHandler struct {
	users      services.UserService
	moderation *services.ModerationService
}

func NewUserHandler(users services.UserService, moderation *services.ModerationService) *UserHandler {
	return &UserHandler{users: users, moderation: moderation}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.GetSubjectID(r.Context())
	if subjectID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthenticated"))
		return
	}

	user, err := h.users.GetBySubjectID(r.Context(), subjectID)
	if err != nil {
		writeServiceError(w, err, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))
}

// CompleteOnboarding attaches the caller's verification images and moves
// them into the pending review queue. Only the caller's own record can be
// onboarded; the subject id comes from the verified token, never the body.
func (h *UserHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.GetSubjectID(r.Context())
	if subjectID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthenticated"))
		return
	}

	var req models.OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	user, err := h.users.CompleteOnboarding(r.Context(), subjectID, req.SelfieRef, req.IDRef)
	if err != nil {
		log.Printf("[CompleteOnboarding] subject=%s error=%v", subjectID, err)
		writeServiceError(w, err, "Failed to complete onboarding")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))
}

// DeleteSelf wipes the caller's own account and everything it owns.
func (h *UserHandler) DeleteSelf(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.GetSubjectID(r.Context())

	principal, err := h.moderation.ResolvePrincipal(r.Context(), subjectID)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	result, err := h.moderation.WipeUser(r.Context(), principal, principal.UserID)
	if err != nil {
		log.Printf("[DeleteSelf] subject=%s error=%v", subjectID, err)
		if result != nil {
			// Partial cascade: report which steps failed.
			writeJSON(w, http.StatusInternalServerError, models.APIResponse{
				Success: false,
				Error:   err.Error(),
				Data:    result,
			})
			return
		}
		writeServiceError(w, err, "Failed to delete account")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}
