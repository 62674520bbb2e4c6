package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress   string
	JWTSecret       string
	JWTExpiration   time.Duration
	DataDir         string
	UploadDir       string
	MaxUploadSizeMB int64

	MongoURI string
	MongoDB  string

	GCSBucket           string
	FirebaseProjectID   string
	FirebaseCredentials string

	WebhookSecret string
}

func Load() *Config {
	// A missing .env is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	return &Config{
		ServerAddress:       getEnv("SERVER_ADDRESS", ":8080"),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:       24 * time.Hour,
		DataDir:             getEnv("DATA_DIR", "./data"),
		UploadDir:           getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSizeMB:     getEnvInt64("MAX_UPLOAD_SIZE_MB", 10),
		MongoURI:            getEnv("MONGO_URI", ""),
		MongoDB:             getEnv("MONGO_DB", "redtea"),
		GCSBucket:           getEnv("GCS_BUCKET", ""),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		WebhookSecret:       getEnv("WEBHOOK_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
