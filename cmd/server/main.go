package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Glaucio24/Redtea/internal/config"
	"github.com/Glaucio24/Redtea/internal/handlers"
	appMiddleware "github.com/Glaucio24/Redtea/internal/middleware"
	"github.com/Glaucio24/Redtea/internal/services"
	"github.com/Glaucio24/Redtea/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Blob storage: GCS when a bucket is configured, local disk otherwise.
	var files services.FileStore
	if cfg.GCSBucket != "" {
		gcsFiles, err := services.NewGCSFileService(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatalf("Failed to initialize GCS file service: %v", err)
		}
		files = gcsFiles
		log.Printf("[server] using GCS blob storage bucket=%s", cfg.GCSBucket)
	} else {
		files = services.NewImageService(cfg.UploadDir)
		log.Printf("[server] using local blob storage dir=%s", cfg.UploadDir)
	}

	// Core services: MongoDB when configured, in-memory with JSON
	// persistence otherwise.
	var (
		users services.UserService
		posts services.PostService
		audit services.AuditService
	)
	if cfg.MongoURI != "" {
		mongoUsers, err := services.NewMongoUserService(ctx, cfg.MongoURI, cfg.MongoDB, files)
		if err != nil {
			log.Fatalf("Failed to initialize Mongo user service: %v", err)
		}
		defer mongoUsers.Close(ctx)

		mongoPosts, err := services.NewMongoPostService(ctx, cfg.MongoURI, cfg.MongoDB, mongoUsers, files)
		if err != nil {
			log.Fatalf("Failed to initialize Mongo post service: %v", err)
		}
		defer mongoPosts.Close(ctx)

		mongoAudit, err := services.NewMongoAuditService(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to initialize Mongo audit service: %v", err)
		}
		defer mongoAudit.Close(ctx)

		users = mongoUsers
		posts = mongoPosts
		audit = mongoAudit
		log.Printf("[server] using MongoDB storage db=%s", cfg.MongoDB)
	} else {
		userStore, err := storage.NewJSONStore(cfg.DataDir, "users.json")
		if err != nil {
			log.Fatalf("Failed to initialize user store: %v", err)
		}
		postStore, err := storage.NewJSONStore(cfg.DataDir, "posts.json")
		if err != nil {
			log.Fatalf("Failed to initialize post store: %v", err)
		}

		memUsers := services.NewMemoryUserService(files, userStore)
		users = memUsers
		posts = services.NewMemoryPostService(memUsers, files, postStore)
		audit = services.NewMemoryAuditService()
		log.Printf("[server] using in-memory storage dir=%s", cfg.DataDir)
	}

	// Identity provider: mirror wipes into Firebase Auth when configured.
	var identity services.IdentityProvider
	if cfg.FirebaseProjectID != "" {
		fbIdentity, err := services.NewFirebaseIdentityProvider(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("Warning: failed to initialize Firebase identity provider: %v", err)
			identity = services.NoopIdentityProvider{}
		} else {
			identity = fbIdentity
		}
	} else {
		identity = services.NoopIdentityProvider{}
	}

	moderation := services.NewModerationService(users, posts, files, audit, identity)
	authService := services.NewAuthService(users)

	// Request auth: Firebase ID tokens when configured, local HS256
	// tokens from the dev auth endpoints otherwise.
	var requireAuth func(http.Handler) http.Handler
	if cfg.FirebaseProjectID != "" {
		authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentials,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth client: %v", err)
		}
		requireAuth = appMiddleware.FirebaseAuth(authClient)
		log.Printf("[server] verifying Firebase ID tokens project=%s", cfg.FirebaseProjectID)
	} else {
		requireAuth = appMiddleware.JWTAuth(cfg.JWTSecret)
		log.Printf("[server] verifying local JWTs (dev mode)")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecret, cfg.JWTExpiration)
	userHandler := handlers.NewUserHandler(users, moderation)
	postHandler := handlers.NewPostHandler(posts, users, moderation)
	adminHandler := handlers.NewAdminHandler(users, posts, audit, moderation)
	imageHandler := handlers.NewImageHandler(files, cfg.MaxUploadSizeMB)
	webhookHandler := handlers.NewWebhookHandler(users, moderation, cfg.WebhookSecret)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Identity lifecycle events from the provider
	r.Post("/webhooks/identity", webhookHandler.HandleIdentityEvent)

	r.Route("/api", func(r chi.Router) {
		// Dev-mode auth
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", userHandler.Me)
				r.Post("/onboarding", userHandler.CompleteOnboarding)
				r.Delete("/", userHandler.DeleteSelf)
			})

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", postHandler.Feed)
				r.Post("/", postHandler.CreatePost)

				r.Route("/{postId}", func(r chi.Router) {
					r.Get("/", postHandler.GetPost)
					r.Delete("/", postHandler.DeletePost)
					r.Post("/vote", postHandler.CastVote)
					r.Post("/report", postHandler.ReportPost)
					r.Get("/comments", postHandler.ListComments)
					r.Post("/comments", postHandler.AddComment)
				})
			})

			r.Get("/users/{userId}/posts", postHandler.ListUserPosts)

			// Image upload
			r.Post("/upload", imageHandler.Upload)
			r.Delete("/upload/{imageId}", imageHandler.Delete)

			// Moderation console
			r.Route("/admin", func(r chi.Router) {
				r.Get("/users", adminHandler.ListUsers)
				r.Post("/users/{userId}/approve", adminHandler.ApproveUser)
				r.Post("/users/{userId}/deny", adminHandler.DenyUser)
				r.Post("/users/{userId}/ban", adminHandler.BanUser)
				r.Post("/users/{userId}/unban", adminHandler.UnbanUser)
				r.Delete("/users/{userId}", adminHandler.WipeUser)

				r.Get("/posts/reported", adminHandler.ListReportedPosts)
				r.Delete("/posts/{postId}", adminHandler.DeletePost)
				r.Post("/posts/{postId}/dismiss", adminHandler.DismissReport)

				r.Get("/actions", adminHandler.ListActions)
			})
		})
	})

	// Serve uploaded files when using local blob storage
	if cfg.GCSBucket == "" {
		workDir, _ := os.Getwd()
		filesDir := http.Dir(workDir + "/" + cfg.UploadDir)
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(filesDir)))
	}

	log.Printf("Red Tea API server starting on %s", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
