package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	CORSOrigins        []string
	RateLimitRPM       int
	LogLevel           string
	LogFormat          string

	PlatformURL       string
	PlatformAnonKey   string
	PlatformJWTSecret string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RedisURL string

	ServiceEmail    string
	ServicePassword string
	// ServiceRememberMe selects the durable session backend for the service
	// session when one is configured.
	ServiceRememberMe     bool
	TokenCheckInterval    time.Duration
	TokenRefreshThreshold time.Duration

	CourseCacheTTL  time.Duration
	ThumbnailBucket string
	ThumbnailSize   int
	MaxUploadSize   int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:       getInt("RATE_LIMIT_RPM", 100),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "pretty")),

		PlatformURL:       getEnv("PLATFORM_URL", ""),
		PlatformAnonKey:   getEnv("PLATFORM_ANON_KEY", ""),
		PlatformJWTSecret: strings.TrimSpace(os.Getenv("PLATFORM_JWT_SECRET")),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		RedisURL: getEnv("REDIS_URL", ""),

		ServiceEmail:          getEnv("SERVICE_EMAIL", ""),
		ServicePassword:       os.Getenv("SERVICE_PASSWORD"),
		ServiceRememberMe:     getBool("SERVICE_REMEMBER_ME", true),
		TokenCheckInterval:    getDuration("TOKEN_CHECK_INTERVAL", 5*time.Minute),
		TokenRefreshThreshold: getDuration("TOKEN_REFRESH_THRESHOLD", 300*time.Second),

		CourseCacheTTL:  getDuration("COURSE_CACHE_TTL", 5*time.Minute),
		ThumbnailBucket: getEnv("THUMBNAIL_BUCKET", "course-thumbnails"),
		ThumbnailSize:   getInt("THUMBNAIL_SIZE", 512),
		MaxUploadSize:   getInt64("MAX_UPLOAD_SIZE", 10<<20),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PlatformURL == "" {
		return fmt.Errorf("PLATFORM_URL is required")
	}

	u, err := url.Parse(c.PlatformURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PLATFORM_URL must be an absolute http(s) URL")
	}

	if c.PlatformAnonKey == "" {
		return fmt.Errorf("PLATFORM_ANON_KEY is required")
	}

	if c.PlatformJWTSecret == "" {
		return fmt.Errorf("PLATFORM_JWT_SECRET is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.ThumbnailSize <= 0 {
		return fmt.Errorf("THUMBNAIL_SIZE must be positive")
	}

	if c.TokenCheckInterval <= 0 {
		return fmt.Errorf("TOKEN_CHECK_INTERVAL must be positive")
	}

	if c.DBMinConns < 0 || c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS must be >= DB_MIN_CONNS")
	}

	switch c.LogFormat {
	case "pretty", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be pretty or json")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
