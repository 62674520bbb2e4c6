package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Glaucio24/Redtea/internal/middleware"
	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/services"
)

type PostHandler struct {
	posts      services.PostService
	users      services.UserService
	moderation *services.ModerationService
}

func NewPostHandler(posts services.PostService, users services.UserService, moderation *services.ModerationService) *PostHandler {
	return &PostHandler{
		posts:      posts,
		users:      users,
		moderation: moderation,
	}
}

// caller resolves the authenticated subject to a directory record.
func (h *PostHandler) caller(r *http.Request) (*models.User, error) {
	subjectID := middleware.GetSubjectID(r.Context())
	if subjectID == "" {
		return nil, services.ErrUnauthenticated
	}
	return h.users.GetBySubjectID(r.Context(), subjectID)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}
	if user.IsBanned {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Account is banned"))
		return
	}
	if !user.IsApproved {
		writeServiceError(w, services.ErrNotApproved, "")
		return
	}

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		log.Printf("[CreatePost] Validation errors: %v", errors)
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	post, err := h.posts.Create(r.Context(), user.ID, &req)
	if err != nil {
		log.Printf("[CreatePost] Service error: %v", err)
		writeServiceError(w, err, "Failed to create post")
		return
	}

	log.Printf("[CreatePost] Post created: %s", post.ID)
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(post))
}

func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Feed(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to load feed")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(posts))
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	post, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		writeServiceError(w, err, "Failed to get post")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(post))
}

func (h *PostHandler) ListUserPosts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	posts, err := h.posts.ListByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(posts))
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.GetSubjectID(r.Context())
	postID := chi.URLParam(r, "postId")

	principal, err := h.moderation.ResolvePrincipal(r.Context(), subjectID)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	if err := h.moderation.DeleteOwnPost(r.Context(), principal, postID); err != nil {
		writeServiceError(w, err, "Failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Post deleted successfully"}))
}

func (h *PostHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	user, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	postID := chi.URLParam(r, "postId")

	var req models.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	post, err := h.posts.CastVote(r.Context(), postID, user.ID, req.Choice)
	if err != nil {
		writeServiceError(w, err, "Failed to cast vote")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(post))
}

func (h *PostHandler) ReportPost(w http.ResponseWriter, r *http.Request) {
	subjectID := middleware.GetSubjectID(r.Context())
	postID := chi.URLParam(r, "postId")

	principal, err := h.moderation.ResolvePrincipal(r.Context(), subjectID)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}

	var req models.ReportRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // reason is optional

	post, err := h.moderation.ReportPost(r.Context(), principal, postID)
	if err != nil {
		writeServiceError(w, err, "Failed to report post")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(post))
}

func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	comments, err := h.posts.ListComments(r.Context(), postID)
	if err != nil {
		writeServiceError(w, err, "Failed to list comments")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(comments))
}

func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user, err := h.caller(r)
	if err != nil {
		writeServiceError(w, err, "Failed to resolve user")
		return
	}
	if user.IsBanned {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Account is banned"))
		return
	}

	postID := chi.URLParam(r, "postId")

	var req models.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	comment, err := h.posts.AddComment(r.Context(), postID, user.ID, req.Content)
	if err != nil {
		writeServiceError(w, err, "Failed to add comment")
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(comment))
}
