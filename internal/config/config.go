package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mohammadhprp/batchgate/internal/limiter"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// DefaultAPIKey is a placeholder; deployments must set API_KEY.
const DefaultAPIKey = "change-me"

// Config holds application configuration sourced from environment variables.
type Config struct {
	Server    ServerConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Log       LogConfig
	GRPC      GRPCConfig
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	File   string // path, "stdout" or "stderr"; empty logs to stderr only
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64
}

// RateLimitConfig contains limiter settings
type RateLimitConfig struct {
	Rate      Rate
	Algorithm string // fixed_window, sliding_window, token_bucket
}

// AuthConfig contains caller classification settings
type AuthConfig struct {
	APIKey            string
	TrustForwardedFor bool
}

// StorageConfig selects the counter store
type StorageConfig struct {
	Backend string // memory, redis
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GRPCConfig contains gRPC transport settings
type GRPCConfig struct {
	Enabled bool
	Port    int
}

// Load reads environment variables into Config. It expects godotenv to have been
// executed by the caller when needed (e.g. in development).
func Load() (Config, error) {
	server := ServerConfig{
		Host:         getEnv("APP_HOST", "0.0.0.0"),
		Port:         getEnvAsInt("APP_PORT", 5000),
		ReadTimeout:  getEnvAsDuration("APP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getEnvAsDuration("APP_WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:  getEnvAsDuration("APP_IDLE_TIMEOUT", 10*time.Second),
		MaxBodyBytes: int64(getEnvAsInt("MAX_BODY_BYTES", 1<<20)),
	}

	rate, err := ParseRate(getEnv("RATE_LIMIT", "3 per minute"))
	if err != nil {
		return Config{}, fmt.Errorf("RATE_LIMIT: %w", err)
	}

	rateLimit := RateLimitConfig{
		Rate:      rate,
		Algorithm: strings.ToLower(getEnv("RATE_LIMIT_ALGORITHM", limiter.AlgorithmFixedWindow)),
	}

	auth := AuthConfig{
		APIKey:            getEnvAllowEmpty("API_KEY", DefaultAPIKey),
		TrustForwardedFor: getEnvAsBool("TRUST_FORWARDED_FOR", false),
	}

	storage := StorageConfig{
		Backend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
	}

	redis := RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnvAsInt("REDIS_PORT", 6379),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}

	logging := LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
		File:   getEnvAllowEmpty("LOG_FILE", "app.log"),
	}

	grpc := GRPCConfig{
		Enabled: getEnvAsBool("GRPC_ENABLED", false),
		Port:    getEnvAsInt("GRPC_PORT", 50051),
	}

	cfg := Config{
		Server:    server,
		RateLimit: rateLimit,
		Auth:      auth,
		Storage:   storage,
		Redis:     redis,
		Log:       logging,
		GRPC:      grpc,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}

	switch c.RateLimit.Algorithm {
	case limiter.AlgorithmFixedWindow, limiter.AlgorithmSlidingWindow, limiter.AlgorithmTokenBucket:
	default:
		errs = append(errs, fmt.Errorf("invalid rate limit algorithm: %s", c.RateLimit.Algorithm))
	}

	switch c.Storage.Backend {
	case StorageMemory, StorageRedis:
	default:
		errs = append(errs, fmt.Errorf("invalid storage backend: %s", c.Storage.Backend))
	}

	if c.RateLimit.Algorithm == limiter.AlgorithmTokenBucket && c.Storage.Backend == StorageRedis {
		errs = append(errs, errors.New("token_bucket keeps its state in memory and cannot use the redis backend"))
	}

	if c.GRPC.Enabled && (c.GRPC.Port < 0 || c.GRPC.Port > 65535) {
		errs = append(errs, fmt.Errorf("invalid grpc port %d", c.GRPC.Port))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getEnvAllowEmpty falls back only when key is unset, so an explicit empty
// value can switch a feature off.
func getEnvAllowEmpty(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	dur, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return dur
}

// LoadDotEnv loads path into the environment if the file exists. Variables
// already set in the environment win.
func LoadDotEnv(path string) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			log.Printf("warning: could not load %s: %v", path, err)
		}
	}
}

// RedisAddr returns the Redis address in host:port format
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ServerAddr returns the server address in host:port format
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GRPCAddr returns the gRPC address in host:port format
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.GRPC.Port)
}
