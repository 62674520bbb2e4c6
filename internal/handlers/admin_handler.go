package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Glaucio24/Redtea/internal/middleware"
	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/services"
)

// AdminHandler fronts the moderation engine. Authorization is not done
// here: every moderation method revalidates the caller's role against
// the live directory record on each call.
type AdminHandler struct {
	users      services.UserService
	posts      services.PostService
	audit      services.AuditService
	moderation *services.ModerationService
}

func NewAdminHandler(users services.UserService, posts services.PostService, audit services.AuditService, moderation *services.ModerationService) *AdminHandler {
	return &AdminHandler{
		users:      users,
		posts:      posts,
		audit:      audit,
		moderation: moderation,
	}
}

func (h *AdminHandler) principal(r *http.Request) (models.Principal, error) {
	return h.moderation.ResolvePrincipal(r.Context(), middleware.GetSubjectID(r.Context()))
}

// ListUsers returns the verification review queue: everyone who has
// completed onboarding, with resolved verification-image URLs.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principal(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}
	if !principal.IsAdmin() {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Unauthorized"))
		return
	}

	users, err := h.users.ListOnboarded(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(users))
}

func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principal(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	user, err := h.moderation.ApproveUser(r.Context(), principal, chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err, "Failed to approve user")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))
}

func (h *AdminHandler) DenyUser(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principal(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	user, err := h.moderation.DenyUser(r.Context(), principal, chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err, "Failed to deny user")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))
}

func (h *AdminHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, true)
}

func (h *AdminHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, false)
}

func (h *AdminHandler) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	principal, err := h.principal(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	user, err := h.moderation.SetBanned(r.Context(), principal, chi.URLParam(r, "userId"), banned)
	if err != nil {
		writeServiceError(w, err, "Failed to update ban state")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))
}

func (h *AdminHandler) WipeUser(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principal(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	targetID := chi.URLParam(r, "userId")
	result, err := h.moderation.WipeUser(r.Context(), principal, targetID)
	if err != nil {
		log.Printf("[WipeUser] target=%s error=%v", targetID, err)
		if result != nil {
			writeJSON(w, http.StatusInternalServerError, models.APIResponse{
				Success: false,
				Error:   err.Error(),
				Data:    result,
			})
			return
		}
		writeServiceError(w, err, "Failed to wipe user")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}

func (h *AdminHandler) ListReportedPosts(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principal(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}
	if !principal.IsAdmin() {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Unauthorized"))
		return
	}

	posts, err := h.posts.ListReported(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to list reported posts")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(posts))
}

func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principal(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	if err := h.moderation.DeletePostAsAdmin(r.Context(), principal, chi.URLParam(r, "postId")); err != nil {
		writeServiceError(w, err, "Failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Post deleted successfully"}))
}

func (h *AdminHandler) DismissReport(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principal(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	post, err := h.moderation.DismissReport(r.Context(), principal, chi.URLParam(r, "postId"))
	if err != nil {
		writeServiceError(w, err, "Failed to dismiss report")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(post))
}

func (h *AdminHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principal(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}
	if !principal.IsAdmin() {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Unauthorized"))
		return
	}

	actions, err := h.audit.List(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to list actions")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(actions))
}
