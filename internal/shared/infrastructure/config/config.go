package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/shared/infrastructure/database"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	StoreDriver   string
	Database      database.PostgresConfig
	Mongo         database.MongoConfig
	Redis         database.RedisConfig
	JWT           JWTConfig
	Push          PushConfig
	Notifications NotificationsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	AllowedOrigins string
	Env            string
}

// JWTConfig holds the secret session tokens are verified with
type JWTConfig struct {
	Secret string
}

// PushConfig holds VAPID credentials and payload defaults for Web Push
type PushConfig struct {
	Subject    string
	PublicKey  string
	PrivateKey string
	TTL        time.Duration
	Icon       string
	Badge      string
}

type NotificationsConfig struct {
	CacheTTL                   time.Duration
	DispatchTimeout            time.Duration
	UnimplementedChannelPolicy string
	ExpirySweepInterval        time.Duration
	MigrationsPath             string
}

// LoadDotEnv reads .env style files into the environment. Missing files are
// skipped and variables already set are never overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
			Env:            getEnv("APP_ENV", "production"),
		},
		StoreDriver: getEnv("STORE_DRIVER", StorePostgres),
		Database: database.PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "gaiathon"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: database.MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "gaiathon"),
		},
		Redis: database.RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-dev-secret"),
		},
		Push: PushConfig{
			Subject:    getEnv("VAPID_SUBJECT", "mailto:admin@gaiathon.dev"),
			PublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			PrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			TTL:        parseDuration(getEnv("PUSH_TTL", "1h"), time.Hour),
			Icon:       getEnv("PUSH_ICON", ""),
			Badge:      getEnv("PUSH_BADGE", ""),
		},
		Notifications: NotificationsConfig{
			CacheTTL:                   parseDuration(getEnv("NOTIFICATION_CACHE_TTL", "24h"), 24*time.Hour),
			DispatchTimeout:            parseDuration(getEnv("DISPATCH_TIMEOUT", "15s"), 15*time.Second),
			UnimplementedChannelPolicy: getEnv("UNIMPLEMENTED_CHANNEL_POLICY", "failed"),
			ExpirySweepInterval:        parseDuration(getEnv("EXPIRY_SWEEP_INTERVAL", "1m"), time.Minute),
			MigrationsPath:             getEnv("MIGRATIONS_PATH", "db/migrations"),
		},
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration string or returns a default value
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

func parseInt(value string, defaultValue int) int {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return defaultValue
}
