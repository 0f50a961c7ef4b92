package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// JwtKey signs and verifies API tokens. Loaded once at startup.
var JwtKey []byte

// CronSecret authenticates the external scheduler when it hits the
// billing trigger endpoints. Empty means scheduled triggers are disabled.
var CronSecret string

// ServerPort is the HTTP listen port, without the colon.
var ServerPort string

// LoadEnv reads .env (if present) and initializes the process-wide settings.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables as-is")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET environment variable is not set")
		os.Exit(1)
	}
	JwtKey = []byte(jwtSecret)

	CronSecret = os.Getenv("CRON_SECRET")
	if CronSecret == "" {
		slog.Warn("CRON_SECRET is not set, scheduled billing triggers are disabled")
	}

	ServerPort = os.Getenv("PORT")
	if ServerPort == "" {
		ServerPort = "8080"
	}
}
