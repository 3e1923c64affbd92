package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingAPIToken = errors.New("API_TOKEN or API_TOKEN_BCRYPT must be set")

// SMTPConfig holds the settings used by the completion mailer.
type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string // e.g. "Profile Intake <no-reply@example.org>"
	SkipTLSVerify bool
}

// Enabled reports whether enough settings are present to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type Config struct {
	ServerPort       string
	APIToken         string
	APITokenBcrypt   string
	JWTSecret        string
	JWTIssuer        string
	DatabaseURL      string
	UploadDir        string
	AllowedFileTypes []string
	MaxFileSizeMB    int
	EnableCORS       bool
	CORSOrigins      []string
	LogLevel         string
	LogFile          string
	ProcessingDelay  time.Duration
	SMTP             SMTPConfig
	RedisAddr        string
	RedisPassword    string
	RedisChannel     string
}

// Load reads the configuration from the environment. Callers that want a
// .env file honoured load it with godotenv before calling Load.
func Load() (Config, error) {
	cfg := Config{
		ServerPort:       getenv("SERVER_PORT", "8000"),
		APIToken:         strings.TrimSpace(os.Getenv("API_TOKEN")),
		APITokenBcrypt:   strings.TrimSpace(os.Getenv("API_TOKEN_BCRYPT")),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTIssuer:        getenv("JWT_ISSUER", "profile-intake"),
		DatabaseURL:      DatabaseURL(),
		UploadDir:        getenv("UPLOAD_DIR", "./uploads"),
		AllowedFileTypes: getenvList("ALLOWED_FILE_TYPES", []string{"pdf"}),
		MaxFileSizeMB:    getenvInt("MAX_FILE_SIZE_MB", 10),
		EnableCORS:       getenvBool("ENABLE_CORS", true),
		CORSOrigins:      getenvList("CORS_ORIGINS", []string{"*"}),
		LogLevel:         strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFile:          os.Getenv("LOG_FILE"),
		ProcessingDelay:  getenvDuration("PROCESSING_DELAY", 2*time.Second),
		SMTP: SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          getenvInt("SMTP_PORT", 587),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			From:          os.Getenv("SMTP_FROM"),
			SkipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
		},
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisChannel:  getenv("REDIS_CHANNEL", "intake:submissions"),
	}
	if cfg.APIToken == "" && cfg.APITokenBcrypt == "" {
		return cfg, ErrMissingAPIToken
	}
	if cfg.MaxFileSizeMB <= 0 {
		return cfg, fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", cfg.MaxFileSizeMB)
	}
	if cfg.ProcessingDelay < 0 {
		return cfg, fmt.Errorf("PROCESSING_DELAY must not be negative, got %s", cfg.ProcessingDelay)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		return cfg, fmt.Errorf("unsupported LOG_LEVEL %q", cfg.LogLevel)
	}
	return cfg, nil
}

// DatabaseURL resolves DATABASE_URL, then the DB_* variables, then the local
// SQLite default.
func DatabaseURL() string {
	if url := getenv("DATABASE_URL", legacyMySQLURL()); url != "" {
		return url
	}
	return "sqlite:///./data.db"
}

// MaxUploadBytes is MaxFileSizeMB expressed in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

func getenv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return fallback
}

// getenvList splits a comma separated value, dropping empty entries. A
// variable that is set but empty falls back too.
func getenvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
