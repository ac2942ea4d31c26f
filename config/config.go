package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     HTTPConfig
	MySQL    MySQLConfig
	JWT      JWTConfig
	Tokens   TokenConfig
	Password PasswordConfig
	Company  CompanyConfig
	Log      LogConfig
	Mail     MailConfig
}

type HTTPConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN string
}

// JWTConfig holds the access and refresh token secrets. Each token kind is
// signed with its own secret.
type JWTConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type TokenConfig struct {
	ResetSecret string
	ResetTTL    time.Duration
}

type PasswordConfig struct {
	Policy PasswordPolicy
}

type CompanyConfig struct {
	DefaultRating float64
}

type LogConfig struct {
	Level  string
	Format string
}

type MailConfig struct {
	Enabled      bool
	ResendAPIKey string
	From         string
	ResetURL     string
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func (p PasswordPolicy) Validate(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return fmt.Errorf("password must have at least %d characters", p.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	return nil
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	accessSecret := os.Getenv("JWT_SECRET")
	if accessSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}
	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if refreshSecret == "" {
		return nil, errors.New("JWT_REFRESH_SECRET environment variable is required")
	}
	resetSecret := os.Getenv("JWT_RESET_SECRET")
	if resetSecret == "" {
		return nil, errors.New("JWT_RESET_SECRET environment variable is required")
	}
	if err := validateDistinctSecrets(accessSecret, refreshSecret, resetSecret); err != nil {
		return nil, err
	}

	return &Config{
		HTTP: HTTPConfig{
			Host: getEnv("HTTP_HOST", ""),
			Port: getEnv("HTTP_PORT", "3333"),
		},
		MySQL: MySQLConfig{
			DSN: mysqlDSN,
		},
		JWT: JWTConfig{
			AccessSecret:    accessSecret,
			RefreshSecret:   refreshSecret,
			AccessTokenTTL:  getDurationEnv("JWT_ACCESS_TOKEN_TTL", 3*time.Hour),
			RefreshTokenTTL: getDurationEnv("JWT_REFRESH_TOKEN_TTL", 45*24*time.Hour),
		},
		Tokens: TokenConfig{
			ResetSecret: resetSecret,
			ResetTTL:    getDurationEnv("RESET_TOKEN_TTL", 2*time.Hour),
		},
		Password: PasswordConfig{
			Policy: loadPasswordPolicy(),
		},
		Company: CompanyConfig{
			DefaultRating: getFloatEnv("COMPANY_DEFAULT_RATING", 5),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Mail: MailConfig{
			Enabled:      getBoolEnv("SHOULD_SEND_EMAIL", false),
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			From:         getEnv("MAIL_FROM", "noreply@estag.io"),
			ResetURL:     getEnv("RESET_URL", "https://estag.io/reset-password"),
		},
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQL.DSN
}

func validateDistinctSecrets(access, refresh, reset string) error {
	if access == refresh || access == reset || refresh == reset {
		return errors.New("JWT_SECRET, JWT_REFRESH_SECRET and JWT_RESET_SECRET must all differ")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func loadPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 8),
		RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", false),
		RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", false),
		RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", false),
		RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
	}
}
