package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/grmaxv/users_api/internal/models"
	"github.com/grmaxv/users_api/pkg/db"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string
	DatabaseURL string

	JWTSecret      []byte
	AccessTokenTTL time.Duration
	TokenLeeway    time.Duration
	ResetTokenTTL  time.Duration

	RevocationSweepInterval time.Duration

	KafkaAddress []string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	ResetBaseURL string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		ServerAddr: EnvDefault("SERVER_ADDR", ":8080"),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     EnvDefault("DB_PORT", "5432"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		AccessTokenTTL: EnvDurationDefault("ACCESS_TOKEN_TTL", 30*time.Minute),
		TokenLeeway:    EnvDurationDefault("TOKEN_LEEWAY", 0),
		ResetTokenTTL:  EnvDurationDefault("RESET_TOKEN_TTL", 15*time.Minute),

		RevocationSweepInterval: EnvDurationDefault("REVOCATION_SWEEP_INTERVAL", 0),

		KafkaAddress: CSV(os.Getenv("KAFKA_ADDRESS")),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     EnvDefault("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASS"),
		MailFrom:     EnvDefault("MAIL_FROM", os.Getenv("SMTP_USER")),
		ResetBaseURL: EnvDefault("RESET_BASE_URL", "http://localhost:8080"),
	}

	if len(config.JWTSecret) == 0 {
		return nil, fmt.Errorf("missing required env JWT_SECRET")
	}
	if config.DatabaseURL == "" && config.DB_HOST == "" {
		return nil, fmt.Errorf("database configuration missing: provide DATABASE_URL or DB_* env vars")
	}

	return config, nil
}

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME,
	)
}

func InitDB(ctx context.Context, cfg *Config) (*gorm.DB, error) {
	gdb, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.RevokedToken{}); err != nil {
		return nil, fmt.Errorf("migrate tables: %w", err)
	}
	return gdb, nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
