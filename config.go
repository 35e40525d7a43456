package bookstore

import (
	"os"
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSigningKey is a development placeholder. Deployments must set
// SECRET_KEY; Validate only warns so local setups keep working.
const DefaultSigningKey = "PLACEHOLDER_FOR_SECRET_KEY"

// Config holds the immutable runtime configuration. Build it once through
// LoadConfig and pass it by value; nothing mutates it after load.
type Config struct {
	SigningKey         string
	SigningMethod      string
	TokenExpireMinutes int
	BcryptCost         int

	ServerAddr  string
	BaseURL     string
	DatabaseDSN string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LoadConfig reads the environment once, honoring a local .env file when
// present.
func LoadConfig() (Config, error) {
	// Missing .env is fine, the environment may be set by the runtime.
	_ = godotenv.Load()

	cfg := Config{
		SigningKey:         getEnvOrDefault("SECRET_KEY", DefaultSigningKey),
		SigningMethod:      getEnvOrDefault("ALGORITHM", "HS256"),
		TokenExpireMinutes: getIntEnv("TOKEN_EXPIRE_MINUTES", 60),
		BcryptCost:         getIntEnv("BCRYPT_COST", DefaultPasswordHashCost),

		ServerAddr:  getEnvOrDefault("SERVER_ADDR", ":8000"),
		BaseURL:     getEnvOrDefault("BASE_URL", "http://localhost:8000"),
		DatabaseDSN: getEnvOrDefault("DATABASE_DSN", "file:bookstore.db?cache=shared"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    getEnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c Config) Validate() error {
	if c.SigningKey == "" {
		return errors.New("signing key must not be empty", errors.CategoryValidation)
	}

	if c.SigningMethod != "HS256" {
		return errors.New("unsupported signing algorithm", errors.CategoryValidation).
			WithMetadata(map[string]any{"algorithm": c.SigningMethod})
	}

	if c.TokenExpireMinutes <= 0 {
		return errors.New("token expiration must be positive", errors.CategoryValidation).
			WithMetadata(map[string]any{"minutes": c.TokenExpireMinutes})
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return errors.New("bcrypt cost out of range", errors.CategoryValidation).
			WithMetadata(map[string]any{"cost": c.BcryptCost})
	}

	return nil
}

// UsingPlaceholderKey reports whether the deployment never set SECRET_KEY.
func (c Config) UsingPlaceholderKey() bool {
	return c.SigningKey == DefaultSigningKey
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
