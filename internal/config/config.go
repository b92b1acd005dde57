package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr string
	//Auth / Security
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetCodeTTL    time.Duration

	// Infrastructure. Required in prod; in dev an empty value falls back to
	// the in-memory implementation so the service can run standalone.
	DBAddr    string
	DBDebug   bool
	RedisAddr string
	RabbitURL string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Identity providers. A provider with empty credentials is simply not
	// registered; requests for it fail with unsupported_provider.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubTokenURL     string
	GitHubUserInfoURL  string

	GoogleUserInfoURL string

	TelegramBotToken string

	// Avatar storage
	AvatarDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}
	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "omnisphere-auth-service")

	// optional with defaults
	ttl, err := getDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.AccessTokenTTL = ttl

	rtl, err := getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenTTL = rtl

	rct, err := getDuration("RESET_CODE_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.ResetCodeTTL = rct

	// Infrastructure dependencies.
	// Fail fast in prod to avoid starting in a broken or
	// partially-initialized state.
	cfg.DBAddr = os.Getenv("DB_ADDR")
	cfg.DBDebug = os.Getenv("DB_DEBUG") == "true"
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RabbitURL = os.Getenv("RABBIT_URL")
	if cfg.Env == "prod" {
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("missing required env var: REDIS_ADDR")
		}
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL")
		}
	}

	// Identity providers
	cfg.GitHubClientID = os.Getenv("GITHUB_CLIENT_ID")
	cfg.GitHubClientSecret = os.Getenv("GITHUB_CLIENT_SECRET")
	cfg.GitHubTokenURL = getEnv("GITHUB_TOKEN_URL", "https://github.com/login/oauth/access_token")
	cfg.GitHubUserInfoURL = getEnv("GITHUB_USERINFO_URL", "https://api.github.com/user")

	cfg.GoogleUserInfoURL = getEnv("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v3/userinfo")

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	cfg.AvatarDir = getEnv("AVATAR_DIR", "./data/avatars")

	// Timeout values are optional and have a default value if not set
	rt, err := getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPReadTimeout = rt

	wt, err := getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPWriteTimeout = wt

	it, err := getDuration("HTTP_IDLE_TIMEOUT", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.HTTPIdleTimeout = it

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}
