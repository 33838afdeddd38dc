package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	DatabaseDSN string

	KeycloakBaseURL      string
	KeycloakRealm        string
	KeycloakClientID     string
	KeycloakClientSecret string

	// Issuer and audience used to verify incoming bearer tokens.
	OIDCIssuer   string
	OIDCClientID string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
}

func Load() Config {
	// Best-effort; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{

		AppPort: getenv("APP_PORT", "8080"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		KeycloakBaseURL:      os.Getenv("KEYCLOAK_BASE_URL"),
		KeycloakRealm:        os.Getenv("KEYCLOAK_REALM"),
		KeycloakClientID:     os.Getenv("KEYCLOAK_ADMIN_CLIENT_ID"),
		KeycloakClientSecret: os.Getenv("KEYCLOAK_ADMIN_CLIENT_SECRET"),

		OIDCIssuer:   os.Getenv("OIDC_ISSUER"),
		OIDCClientID: os.Getenv("OIDC_CLIENT_ID"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getenvInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     os.Getenv("MAIL_FROM"),
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
