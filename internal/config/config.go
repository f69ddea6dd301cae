package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yukikurage/todo-api/internal/constants"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	// StoreBackend selects the table store: "sql" or "firestore".
	StoreBackend     string
	DBDriver         string
	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBPath           string
	FirestoreProject string

	JWTSecret string
	TokenTTL  time.Duration

	// StorageBackend selects the asset store: "local" or "gcs".
	StorageBackend string
	UploadDir      string
	GCSBucket      string
	PublicBaseURL  string
	MaxUploadBytes int64
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:     getEnv("STORE_BACKEND", "sql"),
		DBDriver:         getEnv("DB_DRIVER", "sqlite"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "3306"),
		DBUser:           getEnv("DB_USER", "todouser"),
		DBPassword:       getEnv("DB_PASSWORD", "todopassword"),
		DBName:           getEnv("DB_NAME", "todos"),
		DBPath:           getEnv("DB_PATH", "todos.db"),
		FirestoreProject: getEnv("FIRESTORE_PROJECT", ""),

		JWTSecret: getEnv("JWT_SECRET", "default-secret-key-change-me"),
		TokenTTL:  getDurationEnv("TOKEN_TTL", constants.DefaultTokenTTL),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		GCSBucket:      getEnv("GCS_BUCKET", ""),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", ""),
		MaxUploadBytes: getInt64Env("MAX_UPLOAD_BYTES", constants.DefaultMaxUploadBytes),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getInt64Env(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
