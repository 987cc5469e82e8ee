package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string

	CricosAPIBaseURL      string
	CricosAPIUsername     string
	CricosAPIPassword     string
	CricosTokenTimeoutMs  int
	CricosTimeoutMs       int
	CricosRateLimitRPS    int
	CricosValidateRetries int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	IntakeProvider     string
	IntakeLabel        string
	IntakeIntervalSec  int
	IntakeFetchMax     int
	IntakeProcessBatch int
	IntakeAutoSubmit   bool
	IntakeAutoExport   bool
	IntakeFixYAML      bool

	LogLevel  string
	LogFormat string
	LogFile   string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "offers.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		CricosAPIBaseURL:      getEnv("CRICOS_API_BASE_URL", "https://cricosapi.dotedu.com.au"),
		CricosAPIUsername:     getEnv("CRICOS_API_USERNAME", ""),
		CricosAPIPassword:     getEnv("CRICOS_API_PASSWORD", ""),
		CricosTokenTimeoutMs:  getEnvInt("CRICOS_TOKEN_TIMEOUT_MS", 30000),
		CricosTimeoutMs:       getEnvInt("CRICOS_TIMEOUT_MS", 120000),
		CricosRateLimitRPS:    getEnvInt("CRICOS_RATE_LIMIT_RPS", 2),
		CricosValidateRetries: getEnvInt("CRICOS_VALIDATE_RETRIES", 3),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		IntakeProvider:     getEnv("INTAKE_PROVIDER", "imap"),
		IntakeLabel:        getEnv("INTAKE_LABEL", "INBOX"),
		IntakeIntervalSec:  getEnvInt("INTAKE_INTERVAL_SEC", 60),
		IntakeFetchMax:     getEnvInt("INTAKE_FETCH_MAX", 20),
		IntakeProcessBatch: getEnvInt("INTAKE_PROCESS_BATCH", 20),
		IntakeAutoSubmit:   getEnvBool("INTAKE_AUTO_SUBMIT", false),
		IntakeAutoExport:   getEnvBool("INTAKE_AUTO_EXPORT", false),
		IntakeFixYAML:      getEnvBool("INTAKE_FIX_YAML", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogFile:   getEnv("LOG_FILE", ""),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func (c Config) RequireCricosCredentials() error {
	if err := c.Require("CRICOS_API_USERNAME", c.CricosAPIUsername); err != nil {
		return err
	}
	return c.Require("CRICOS_API_PASSWORD", c.CricosAPIPassword)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
