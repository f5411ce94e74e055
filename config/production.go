// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Server     ServerConfig
	Security   SecurityConfig
	Pricing    PricingConfig
	Sheets     SheetsConfig
	Email      EmailConfig
	Captcha    CaptchaConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Cache      CacheConfig
	Deployment DeploymentConfig
}

type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	BodyLimit       int           `env:"SERVER_BODY_LIMIT" envDefault:"1048576"`
	ProxyHeader     string        `env:"SERVER_PROXY_HEADER" envDefault:"X-Real-IP"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"https://inox-tables.eu,https://www.inox-tables.eu"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envDefault:"Origin,Content-Type,Accept,Authorization,X-Requested-With,X-Request-ID,X-Admin-Token"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	CORSMaxAge       int      `env:"CORS_MAX_AGE" envDefault:"86400"`

	// Rate Limiting
	GlobalRateLimit  int           `env:"GLOBAL_RATE_LIMIT" envDefault:"300"`  // requests per window
	InquiryRateLimit int           `env:"INQUIRY_RATE_LIMIT" envDefault:"10"` // requests per window
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Content Security
	CSPPolicy      string `env:"CSP_POLICY" envDefault:"default-src 'self'; frame-ancestors 'none';"`
	XFrameOptions  string `env:"X_FRAME_OPTIONS" envDefault:"DENY"`
	ReferrerPolicy string `env:"REFERRER_POLICY" envDefault:"strict-origin-when-cross-origin"`
	HSTSMaxAge     int    `env:"HSTS_MAX_AGE" envDefault:"31536000"`

	// Privileged callers
	AdminToken    string        `env:"ADMIN_TOKEN"`
	JWTSecretKey  string        `env:"JWT_SECRET_KEY"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"inox-pricing"`
	AdminTokenTTL time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
}

type PricingConfig struct {
	RuleSetPath string `env:"PRICING_RULES_PATH" envDefault:"config/pricing.json"`
}

type SheetsConfig struct {
	Enabled         bool          `env:"SHEETS_ENABLED" envDefault:"false"`
	Provider        string        `env:"SHEETS_PROVIDER" envDefault:"google"` // google, xlsx
	SpreadsheetID   string        `env:"SHEETS_SPREADSHEET_ID"`
	ReadRange       string        `env:"SHEETS_RANGE" envDefault:"Pricing!A:B"`
	CredentialsFile string        `env:"SHEETS_CREDENTIALS_FILE"`
	XLSXPath        string        `env:"SHEETS_XLSX_PATH"`
	XLSXSheet       string        `env:"SHEETS_XLSX_SHEET" envDefault:"Pricing"`
	CacheTTL        time.Duration `env:"SHEETS_CACHE_TTL" envDefault:"5m"`
	FetchTimeout    time.Duration `env:"SHEETS_FETCH_TIMEOUT" envDefault:"10s"`
	RetryMaxElapsed time.Duration `env:"SHEETS_RETRY_MAX_ELAPSED" envDefault:"30s"`
}

type EmailConfig struct {
	Provider        string        `env:"EMAIL_PROVIDER" envDefault:"mock"` // mock, smtp
	Host            string        `env:"EMAIL_HOST"`
	Port            int           `env:"EMAIL_PORT" envDefault:"587"`
	Username        string        `env:"EMAIL_USERNAME"`
	Password        string        `env:"EMAIL_PASSWORD"`
	FromEmail       string        `env:"EMAIL_FROM_EMAIL" envDefault:"noreply@inox-tables.eu"`
	FromName        string        `env:"EMAIL_FROM_NAME" envDefault:"Inox Tables"`
	SalesEmail      string        `env:"EMAIL_SALES_ADDRESS" envDefault:"sales@inox-tables.eu"`
	RetryMaxElapsed time.Duration `env:"EMAIL_RETRY_MAX_ELAPSED" envDefault:"20s"`
	Timeout         time.Duration `env:"EMAIL_TIMEOUT" envDefault:"15s"`
}

type CaptchaConfig struct {
	Enabled   bool          `env:"CAPTCHA_ENABLED" envDefault:"false"`
	TTL       time.Duration `env:"CAPTCHA_TTL" envDefault:"2m"`
	Padding   int           `env:"CAPTCHA_PADDING" envDefault:"8"`
	ImageSize int           `env:"CAPTCHA_IMAGE_SIZE" envDefault:"220"`
}

type LoggingConfig struct {
	Level            string `env:"LOG_LEVEL" envDefault:"info"`    // debug, info, warn, error
	Format           string `env:"LOG_FORMAT" envDefault:"json"`   // json, text
	Output           string `env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, file, both
	FilePath         string `env:"LOG_FILE_PATH" envDefault:"/var/log/inox-pricing/app.log"`
	MaxSize          int    `env:"LOG_MAX_SIZE" envDefault:"100"` // MB
	MaxBackups       int    `env:"LOG_MAX_BACKUPS" envDefault:"10"`
	MaxAge           int    `env:"LOG_MAX_AGE" envDefault:"30"` // days
	Compress         bool   `env:"LOG_COMPRESS" envDefault:"true"`
	EnableCaller     bool   `env:"LOG_ENABLE_CALLER" envDefault:"true"`
	EnableStacktrace bool   `env:"LOG_ENABLE_STACKTRACE" envDefault:"false"`
	EnableAccessLog  bool   `env:"LOG_ENABLE_ACCESS" envDefault:"true"`
}

type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

type CacheConfig struct {
	Enabled             bool          `env:"CACHE_ENABLED" envDefault:"false"`
	RedisURL            string        `env:"CACHE_REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisDB             int           `env:"CACHE_REDIS_DB" envDefault:"0"`
	RedisPrefix         string        `env:"CACHE_REDIS_PREFIX" envDefault:"inox-pricing:"`
	HealthCheckInterval time.Duration `env:"CACHE_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

type DeploymentConfig struct {
	Environment string `env:"APP_ENV" envDefault:"production"`
	Version     string `env:"VERSION" envDefault:"1.0.0"`
	CommitHash  string `env:"COMMIT_HASH" envDefault:"unknown"`
}

// LoadProductionConfig loads and validates configuration from environment variables.
// A .env file in the working directory is applied first without overriding set variables.
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Server
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Security
	if cfg.Security.GlobalRateLimit <= 0 {
		errors = append(errors, "GLOBAL_RATE_LIMIT must be positive")
	}
	if cfg.Security.InquiryRateLimit <= 0 {
		errors = append(errors, "INQUIRY_RATE_LIMIT must be positive")
	}
	if cfg.Security.RateLimitWindow <= 0 {
		errors = append(errors, "RATE_LIMIT_WINDOW must be positive")
	}
	if cfg.Security.AdminToken != "" && len(cfg.Security.AdminToken) < 24 {
		errors = append(errors, "ADMIN_TOKEN must be at least 24 characters long")
	}
	if cfg.Security.JWTSecretKey != "" && len(cfg.Security.JWTSecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.Security.AdminTokenTTL <= 0 {
		errors = append(errors, "ADMIN_TOKEN_TTL must be positive")
	}

	// Pricing
	if strings.TrimSpace(cfg.Pricing.RuleSetPath) == "" {
		errors = append(errors, "PRICING_RULES_PATH is required")
	}

	// Spreadsheet rule source
	if cfg.Sheets.Enabled {
		switch cfg.Sheets.Provider {
		case "google":
			if cfg.Sheets.SpreadsheetID == "" {
				errors = append(errors, "SHEETS_SPREADSHEET_ID is required for the google provider")
			}
			if cfg.Sheets.CredentialsFile == "" {
				errors = append(errors, "SHEETS_CREDENTIALS_FILE is required for the google provider")
			}
		case "xlsx":
			if cfg.Sheets.XLSXPath == "" {
				errors = append(errors, "SHEETS_XLSX_PATH is required for the xlsx provider")
			}
		default:
			errors = append(errors, "SHEETS_PROVIDER must be one of: google, xlsx")
		}
		if cfg.Sheets.CacheTTL <= 0 {
			errors = append(errors, "SHEETS_CACHE_TTL must be positive")
		}
	}

	// Email
	switch cfg.Email.Provider {
	case "mock":
	case "smtp":
		if cfg.Email.Host == "" {
			errors = append(errors, "EMAIL_HOST is required for the smtp provider")
		}
		if cfg.Email.Port <= 0 || cfg.Email.Port > 65535 {
			errors = append(errors, "EMAIL_PORT must be between 1 and 65535")
		}
	default:
		errors = append(errors, "EMAIL_PROVIDER must be one of: mock, smtp")
	}
	if !strings.Contains(cfg.Email.FromEmail, "@") {
		errors = append(errors, "EMAIL_FROM_EMAIL must be an email address")
	}
	if !strings.Contains(cfg.Email.SalesEmail, "@") {
		errors = append(errors, "EMAIL_SALES_ADDRESS must be an email address")
	}

	// Logging
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.Logging.Level) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	validOutputs := []string{"stdout", "file", "both"}
	if !slices.Contains(validOutputs, cfg.Logging.Output) {
		errors = append(errors, fmt.Sprintf("LOG_OUTPUT must be one of: %v", validOutputs))
	}

	// Cache
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
