package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Glaucio24/Redtea/internal/middleware"
	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/services"
)

type handlerFixture struct {
	users      *services.MemoryUserService
	posts      *services.MemoryPostService
	moderation *services.ModerationService
	router     *chi.Mux
}

// testAuth stands in for the token middleware: the subject id comes from
// a request header instead of a verified token.
func testAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subject := r.Header.Get("X-Test-Subject"); subject != "" {
			r = r.WithContext(middleware.WithSubjectID(r.Context(), subject))
		}
		next.ServeHTTP(w, r)
	})
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{}
	f.users = services.NewMemoryUserService(nil, nil)
	f.posts = services.NewMemoryPostService(f.users, nil, nil)
	audit := services.NewMemoryAuditService()
	f.moderation = services.NewModerationService(f.users, f.posts, nil, audit, nil)

	postHandler := NewPostHandler(f.posts, f.users, f.moderation)
	userHandler := NewUserHandler(f.users, f.moderation)
	adminHandler := NewAdminHandler(f.users, f.posts, audit, f.moderation)

	r := chi.NewRouter()
	r.Use(testAuth)
	r.Get("/api/me", userHandler.Me)
	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/", postHandler.Feed)
		r.Post("/", postHandler.CreatePost)
		r.Route("/{postId}", func(r chi.Router) {
			r.Get("/", postHandler.GetPost)
			r.Delete("/", postHandler.DeletePost)
			r.Post("/vote", postHandler.CastVote)
			r.Post("/report", postHandler.ReportPost)
			r.Post("/comments", postHandler.AddComment)
		})
	})
	r.Get("/api/admin/users", adminHandler.ListUsers)
	f.router = r
	return f
}

func (f *handlerFixture) addUser(t *testing.T, subjectID string, approved bool) *models.User {
	t.Helper()
	user, err := f.users.UpsertFromIdentityEvent(context.Background(), subjectID, subjectID+"@example.com", "", "")
	require.NoError(t, err)
	if approved {
		user, err = f.users.SetApproval(context.Background(), user.ID, true)
		require.NoError(t, err)
	}
	return user
}

func (f *handlerFixture) do(t *testing.T, method, path, subject string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if subject != "" {
		req.Header.Set("X-Test-Subject", subject)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestMeEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.addUser(t, "user_1", false)

	rec := f.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/me", "user_1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user models.User
	decodeData(t, rec, &user)
	assert.Equal(t, "user_1", user.SubjectID)
}

func TestCreatePostRequiresApproval(t *testing.T) {
	f := newHandlerFixture(t)
	f.addUser(t, "user_pending", false)

	body := models.CreatePostRequest{Name: "Alex", Age: 29, City: "Austin", Text: "On time, paid their share."}
	rec := f.do(t, http.MethodPost, "/api/posts", "user_pending", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.addUser(t, "user_ok", true)
	rec = f.do(t, http.MethodPost, "/api/posts", "user_ok", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var post models.Post
	decodeData(t, rec, &post)
	assert.Equal(t, "Alex", post.Name)
	assert.NotEmpty(t, post.CreatorPseudonym)
}

func TestCreatePostBannedUser(t *testing.T) {
	f := newHandlerFixture(t)
	user := f.addUser(t, "user_banned", true)
	_, err := f.users.SetBanned(context.Background(), user.ID, true)
	require.NoError(t, err)

	body := models.CreatePostRequest{Name: "Alex", Age: 29, City: "Austin", Text: "Text."}
	rec := f.do(t, http.MethodPost, "/api/posts", "user_banned", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreatePostValidation(t *testing.T) {
	f := newHandlerFixture(t)
	f.addUser(t, "user_ok", true)

	rec := f.do(t, http.MethodPost, "/api/posts", "user_ok", models.CreatePostRequest{Name: "Alex"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoteEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	author := f.addUser(t, "user_author", true)
	f.addUser(t, "user_voter", true)

	created, err := f.posts.Create(context.Background(), author.ID, &models.CreatePostRequest{
		Name: "Alex", Age: 29, City: "Austin", Text: "Kind and funny.",
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/posts/"+created.ID+"/vote", "user_voter", models.VoteRequest{Choice: models.VoteGreen})
	require.Equal(t, http.StatusOK, rec.Code)
	var post models.Post
	decodeData(t, rec, &post)
	assert.Equal(t, 1, post.GreenFlags)

	// Retraction via empty choice.
	rec = f.do(t, http.MethodPost, "/api/posts/"+created.ID+"/vote", "user_voter", models.VoteRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &post)
	assert.Equal(t, 0, post.GreenFlags)

	rec = f.do(t, http.MethodPost, "/api/posts/missing/vote", "user_voter", models.VoteRequest{Choice: models.VoteRed})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePostOwnership(t *testing.T) {
	f := newHandlerFixture(t)
	author := f.addUser(t, "user_author", true)
	f.addUser(t, "user_other", true)

	created, err := f.posts.Create(context.Background(), author.ID, &models.CreatePostRequest{
		Name: "Alex", Age: 29, City: "Austin", Text: "Left early.",
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/api/posts/"+created.ID, "user_other", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/posts/"+created.ID, "user_author", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/posts/"+created.ID, "user_author", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	f := newHandlerFixture(t)
	f.addUser(t, "user_plain", true)

	rec := f.do(t, http.MethodGet, "/api/admin/users", "user_plain", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
