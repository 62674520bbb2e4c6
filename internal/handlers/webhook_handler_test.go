package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Glaucio24/Redtea/internal/services"
)

func newWebhookFixture(t *testing.T, secret string) (*WebhookHandler, *services.MemoryUserService) {
	t.Helper()
	users := services.NewMemoryUserService(nil, nil)
	posts := services.NewMemoryPostService(users, nil, nil)
	moderation := services.NewModerationService(users, posts, nil, services.NewMemoryAuditService(), nil)
	return NewWebhookHandler(users, moderation, secret), users
}

func postEvent(t *testing.T, h *WebhookHandler, body, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	h.HandleIdentityEvent(rec, req)
	return rec
}

func TestWebhookUserCreated(t *testing.T) {
	h, users := newWebhookFixture(t, "")

	rec := postEvent(t, h, `{"type":"user.created","id":"user_1","email":"a@example.com","name":"Ana"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := users.GetBySubjectID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)
	assert.NotEmpty(t, user.Pseudonym)
}

func TestWebhookEnvelopedPayload(t *testing.T) {
	h, users := newWebhookFixture(t, "")

	rec := postEvent(t, h, `{"type":"user.created","data":{"id":"user_2","email":"b@example.com","name":"Ben"}}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := users.GetBySubjectID(context.Background(), "user_2")
	require.NoError(t, err)
	assert.Equal(t, "Ben", user.Name)
}

func TestWebhookUserDeleted(t *testing.T) {
	h, users := newWebhookFixture(t, "")

	_, err := users.UpsertFromIdentityEvent(context.Background(), "user_1", "a@example.com", "Ana", "")
	require.NoError(t, err)

	rec := postEvent(t, h, `{"type":"user.deleted","id":"user_1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = users.GetBySubjectID(context.Background(), "user_1")
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestWebhookUserDeletedIsIdempotent(t *testing.T) {
	h, users := newWebhookFixture(t, "")

	// A subject the directory never mirrored still gets an ack, or the
	// provider would redeliver the event forever.
	rec := postEvent(t, h, `{"type":"user.deleted","id":"user_never_seen"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Same for a redelivery after a successful wipe.
	_, err := users.UpsertFromIdentityEvent(context.Background(), "user_1", "a@example.com", "Ana", "")
	require.NoError(t, err)

	rec = postEvent(t, h, `{"type":"user.deleted","id":"user_1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postEvent(t, h, `{"type":"user.deleted","id":"user_1"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookIgnoresUnknownEvents(t *testing.T) {
	h, _ := newWebhookFixture(t, "")

	rec := postEvent(t, h, `{"type":"session.created","id":"user_1"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Events without a subject id are acknowledged, not retried.
	rec = postEvent(t, h, `{"type":"user.created"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookSecret(t *testing.T) {
	h, _ := newWebhookFixture(t, "topsecret")

	rec := postEvent(t, h, `{"type":"user.created","id":"user_1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postEvent(t, h, `{"type":"user.created","id":"user_1"}`, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postEvent(t, h, `{"type":"user.created","id":"user_1"}`, "topsecret")
	assert.Equal(t, http.StatusOK, rec.Code)
}
