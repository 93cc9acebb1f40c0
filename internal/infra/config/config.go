package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings" // For LogLevel normalization

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const secretMask = "********"

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	Name     string `validate:"required"`
	User     string `validate:"required"`
	Password string // may be empty for trust or peer authentication
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// DSN returns a lib/pq connection URL.
func (c DatabaseConfig) DSN() string {
	userInfo := url.User(c.User)
	if c.Password != "" {
		userInfo = url.UserPassword(c.User, c.Password)
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}, "connect_timeout": {"10"}}.Encode(),
	}
	return u.String()
}

// EmailConfig holds SMTP settings for the sending account.
type EmailConfig struct {
	SMTPServer     string `validate:"required,hostname"`
	SMTPPort       int    `validate:"min=1,max=65535"`
	SenderEmail    string `validate:"required,email"`
	SenderPassword string `validate:"required"`
	MaxRetries     int    `validate:"min=1,max=10"`
}

// AppConfig holds all configuration for the application
type AppConfig struct {
	Database      DatabaseConfig
	Email         EmailConfig
	QuoteAPIURL   string `validate:"required,url"`
	CronSpecDaily string `validate:"required"`
	LogLevel      string
	LogDir        string `validate:"required"`
	Environment   string
}

// Load reads configuration from environment variables and the given .env files (if present).
// Missing required values are not an error here; see Validate.
func Load(envFiles ...string) (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load(envFiles...)

	cfg := &AppConfig{}
	var err error

	cfg.Database.Host = getenv("DB_HOST", "localhost")
	cfg.Database.Port, err = getenvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	cfg.Database.Name = os.Getenv("DB_NAME")
	cfg.Database.User = getenv("DB_USER", "postgres")
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	cfg.Database.SSLMode = getenv("DB_SSLMODE", "disable")

	cfg.Email.SMTPServer = getenv("SMTP_SERVER", "smtp.gmail.com")
	cfg.Email.SMTPPort, err = getenvInt("SMTP_PORT", 465)
	if err != nil {
		return nil, err
	}
	cfg.Email.SenderEmail = os.Getenv("SENDER_EMAIL")
	cfg.Email.SenderPassword = os.Getenv("SENDER_PASSWORD")
	cfg.Email.MaxRetries, err = getenvInt("EMAIL_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cfg.QuoteAPIURL = getenv("QUOTE_API_URL", "https://zenquotes.io/api/today")
	cfg.CronSpecDaily = getenv("CRON_SPEC_DAILY", "0 7 * * *") // Default: 07:00 local time

	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getenv("ENVIRONMENT", "development"))
	cfg.LogDir = getenv("LOG_DIR", "logs")

	return cfg, nil
}

// Validate checks that everything needed to run a job is present and well formed.
func (c *AppConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Describe renders the configuration for diagnostics. Secrets are masked.
func (c *AppConfig) Describe() string {
	var b strings.Builder
	b.WriteString("Database Configuration:\n")
	fmt.Fprintf(&b, "  Host: %s\n", c.Database.Host)
	fmt.Fprintf(&b, "  Port: %d\n", c.Database.Port)
	fmt.Fprintf(&b, "  Database: %s\n", c.Database.Name)
	fmt.Fprintf(&b, "  User: %s\n", c.Database.User)
	fmt.Fprintf(&b, "  Password: %s\n", mask(c.Database.Password))
	b.WriteString("Email Configuration:\n")
	fmt.Fprintf(&b, "  SMTP Server: %s\n", c.Email.SMTPServer)
	fmt.Fprintf(&b, "  SMTP Port: %d\n", c.Email.SMTPPort)
	fmt.Fprintf(&b, "  Sender Email: %s\n", c.Email.SenderEmail)
	fmt.Fprintf(&b, "  Password: %s\n", mask(c.Email.SenderPassword))
	fmt.Fprintf(&b, "  Max Retries: %d\n", c.Email.MaxRetries)
	b.WriteString("Job Configuration:\n")
	fmt.Fprintf(&b, "  Quote API: %s\n", c.QuoteAPIURL)
	fmt.Fprintf(&b, "  Schedule: %s\n", c.CronSpecDaily)
	fmt.Fprintf(&b, "  Log Level: %s\n", c.LogLevel)
	fmt.Fprintf(&b, "  Log Dir: %s\n", c.LogDir)
	fmt.Fprintf(&b, "  Environment: %s\n", c.Environment)
	return b.String()
}

// mask hides a secret behind a fixed-length placeholder so its length does not leak.
func mask(secret string) string {
	if secret == "" {
		return "NOT SET"
	}
	return secretMask
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
