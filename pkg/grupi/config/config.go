package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	ServerPort string
	DBPath     string
	JWTSecret  string

	// Registration is restricted to this email domain.
	AllowedEmailDomain string

	// OTP engine knobs.
	OTPTTL         time.Duration
	OTPCooldown    time.Duration
	OTPMaxAttempts int

	// How long a validated password-reset grant stays usable.
	ResetGrantTTL time.Duration

	// Mailer backend: "console" or "sendgrid".
	MailerBackend  string
	SendgridAPIKey string
	FromEmail      string
	FromName       string
}

// Load reads .env (if present) and the environment, falling back to
// development defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		ServerPort:         getEnv("PORT", "8080"),
		DBPath:             getEnv("GRUPI_DB_PATH", "grupi.db"),
		JWTSecret:          getEnv("JWT_SECRET", "grupi-dev-secret-change-in-production"),
		AllowedEmailDomain: getEnv("ALLOWED_EMAIL_DOMAIN", "univesp.br"),
		OTPTTL:             getDurationEnv("OTP_TTL", 10*time.Minute),
		OTPCooldown:        getDurationEnv("OTP_COOLDOWN", 60*time.Second),
		OTPMaxAttempts:     getIntEnv("OTP_MAX_ATTEMPTS", 5),
		ResetGrantTTL:      getDurationEnv("RESET_GRANT_TTL", 5*time.Minute),
		MailerBackend:      getEnv("MAILER_BACKEND", "console"),
		SendgridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		FromEmail:          getEnv("FROM_EMAIL", "noreply@grupi.local"),
		FromName:           getEnv("FROM_NAME", "GruPI"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid value for %s, using default", key)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid value for %s, using default", key)
	}
	return defaultValue
}
