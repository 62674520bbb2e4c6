package main

import (
	"context"
	"log"
	"net/http"

	"github.com/Glaucio24/Redtea/internal/config"
	"github.com/Glaucio24/Redtea/internal/handlers"
	"github.com/Glaucio24/Redtea/internal/services"
)

// identity-worker receives identity-provider lifecycle events on a
// dedicated deployment, away from the API serving path. Deletion events
// can fan out into a full account wipe, so they get their own process
// and their own retry budget.
func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.MongoURI == "" {
		log.Fatal("MONGO_URI env var is not set; the worker requires shared storage")
	}

	var files services.FileStore
	if cfg.GCSBucket != "" {
		gcsFiles, err := services.NewGCSFileService(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatalf("[worker] gcs init failed: %v", err)
		}
		files = gcsFiles
	} else {
		files = services.NewImageService(cfg.UploadDir)
	}

	users, err := services.NewMongoUserService(ctx, cfg.MongoURI, cfg.MongoDB, files)
	if err != nil {
		log.Fatalf("[worker] mongo user service init failed: %v", err)
	}
	defer users.Close(ctx)

	posts, err := services.NewMongoPostService(ctx, cfg.MongoURI, cfg.MongoDB, users, files)
	if err != nil {
		log.Fatalf("[worker] mongo post service init failed: %v", err)
	}
	defer posts.Close(ctx)

	audit, err := services.NewMongoAuditService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("[worker] mongo audit service init failed: %v", err)
	}
	defer audit.Close(ctx)

	var identity services.IdentityProvider = services.NoopIdentityProvider{}
	if cfg.FirebaseProjectID != "" {
		fbIdentity, err := services.NewFirebaseIdentityProvider(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[worker] firebase identity init failed, provider mirroring disabled: %v", err)
		} else {
			identity = fbIdentity
		}
	}

	moderation := services.NewModerationService(users, posts, files, audit, identity)
	webhookHandler := handlers.NewWebhookHandler(users, moderation, cfg.WebhookSecret)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	http.HandleFunc("/webhooks/identity", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			log.Printf("[worker] rejected non-POST method=%s", r.Method)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		webhookHandler.HandleIdentityEvent(w, r)
	})

	log.Printf("identity-worker listening on %s", cfg.ServerAddress)
	log.Fatal(http.ListenAndServe(cfg.ServerAddress, nil))
}
