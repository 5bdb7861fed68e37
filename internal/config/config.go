package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string        `env:"DATABASE_URL"`
	DBWaitTimeout  time.Duration `env:"DB_WAIT_TIMEOUT" envDefault:"30s"` // 起動時にDBの応答を待つ最大時間
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`

	// OAuth
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	// Session
	JWTSecret string `env:"JWT_SECRET"`

	// Frontend
	FrontendURL string `env:"FRONTEND_URL"`

	// Username
	UsernameMaxAttempts int `env:"USERNAME_MAX_ATTEMPTS" envDefault:"50"`

	// Rate Limit（1分あたり・IPごと）
	RateLimitAuth int `env:"RATE_LIMIT_AUTH" envDefault:"30"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"`

	// リバースプロキシ配下でX-Forwarded-Forを信頼する
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定の名前をすべて含むエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Required fields
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"GOOGLE_CLIENT_ID", cfg.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret},
		{"GOOGLE_REDIRECT_URL", cfg.GoogleRedirectURL},
		{"FRONTEND_URL", cfg.FrontendURL},
		{"JWT_SECRET", cfg.JWTSecret},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.UsernameMaxAttempts <= 0 {
		return nil, fmt.Errorf("USERNAME_MAX_ATTEMPTS must be positive: %d", cfg.UsernameMaxAttempts)
	}
	if cfg.DBWaitTimeout <= 0 {
		return nil, fmt.Errorf("DB_WAIT_TIMEOUT must be positive: %s", cfg.DBWaitTimeout)
	}
	if cfg.DBMaxOpenConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS must be positive: %d", cfg.DBMaxOpenConns)
	}
	if cfg.RateLimitAuth <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_AUTH must be positive: %d", cfg.RateLimitAuth)
	}

	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.FrontendURL, "https://")
	if cfg.CORSAllowedOrigin == "" {
		cfg.CORSAllowedOrigin = cfg.FrontendURL
	}

	return cfg, nil
}

// Status はOAuth設定の有無を返す。秘密情報の値は含めない。
func (c *Config) Status() map[string]string {
	return map[string]string{
		"clientID":     setOrMissing(c.GoogleClientID),
		"clientSecret": setOrMissing(c.GoogleClientSecret),
		"jwtSecret":    setOrMissing(c.JWTSecret),
		"frontendURL":  c.FrontendURL,
		"callbackURL":  c.GoogleRedirectURL,
	}
}

func setOrMissing(v string) string {
	if v == "" {
		return "missing"
	}
	return "set"
}
