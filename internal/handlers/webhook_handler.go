package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/services"
)

// identityEvent is the lifecycle notification sent by the identity
// provider. Minimal fields we need: type, subject id, and the profile
// attributes mirrored into the directory.
type identityEvent struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type identityEventData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// identityEventEnvelope handles providers that nest the subject payload
// under a "data" field.
type identityEventEnvelope struct {
	Type string            `json:"type"`
	Data identityEventData `json:"data"`
}

// WebhookHandler mirrors identity-provider lifecycle events into the
// user directory.
type WebhookHandler struct {
	users      services.UserService
	moderation *services.ModerationService
	secret     string
}

func NewWebhookHandler(users services.UserService, moderation *services.ModerationService, secret string) *WebhookHandler {
	return &WebhookHandler{
		users:      users,
		moderation: moderation,
		secret:     secret,
	}
}

func (h *WebhookHandler) HandleIdentityEvent(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			log.Printf("[webhook] rejected event with bad secret")
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
			return
		}
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[webhook] failed to read request body: %v", err)
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	// Try the flat shape first, then fall back to the enveloped shape
	// with the subject nested under "data".
	var flat identityEvent
	if err := json.Unmarshal(rawBody, &flat); err != nil {
		log.Printf("[webhook] failed to decode event body: %v", err)
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	eventType := flat.Type
	subjectID := flat.ID
	email := flat.Email
	name := flat.Name

	if subjectID == "" {
		var envelope identityEventEnvelope
		if err := json.Unmarshal(rawBody, &envelope); err == nil && envelope.Data.ID != "" {
			eventType = envelope.Type
			subjectID = envelope.Data.ID
			email = envelope.Data.Email
			name = envelope.Data.Name
		}
	}

	log.Printf("[webhook] event received: type=%s subject=%s", eventType, subjectID)

	if subjectID == "" {
		// Ack unparseable events so the provider does not retry forever.
		log.Printf("[webhook] skipping event: subject id empty after all parse attempts")
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Event ignored"}))
		return
	}

	switch eventType {
	case "user.created", "user.updated":
		user, err := h.users.UpsertFromIdentityEvent(r.Context(), subjectID, email, name, "")
		if err != nil {
			log.Printf("[webhook] upsert failed subject=%s err=%v", subjectID, err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to upsert user"))
			return
		}
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))

	case "user.deleted":
		result, err := h.moderation.MirrorProviderDeletion(r.Context(), subjectID)
		if errors.Is(err, services.ErrUserNotFound) {
			// Never mirrored or already wiped. The provider redelivers
			// until it sees a 2xx, so ack instead of erroring.
			log.Printf("[webhook] subject %s already absent, acking deletion", subjectID)
			writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Already deleted"}))
			return
		}
		if err != nil {
			log.Printf("[webhook] mirror deletion failed subject=%s err=%v", subjectID, err)
			// Retry by returning 500; the provider will redeliver.
			writeJSON(w, http.StatusInternalServerError, models.APIResponse{
				Success: false,
				Error:   err.Error(),
				Data:    result,
			})
			return
		}
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))

	default:
		log.Printf("[webhook] skipping unhandled event type=%s", eventType)
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Event ignored"}))
	}
}
