package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App    AppConfig
	Agora  AgoraConfig
	Store  StoreConfig
	Redis  RedisConfig
	Logger LoggerConfig
	Auth   AuthConfig
	Token  TokenConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// AgoraConfig holds the default project credentials used when a request carries none.
type AgoraConfig struct {
	AppID          string
	AppCertificate string
}

// StoreConfig selects and tunes the credential store.
type StoreConfig struct {
	Backend              string
	WriteTimeoutSeconds  int
	MemoryCleanupSeconds int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig enables bearer authentication of callers when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string
}

// TokenConfig tunes request handling of the token endpoint.
type TokenConfig struct {
	StrictRoles bool
}

// Load reads configuration from environment variables, applying defaults where possible.
// A set but unparsable numeric or boolean variable is an error, never a silent default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := getEnvAsInt("STORE_WRITE_TIMEOUT_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	memoryCleanup, err := getEnvAsInt("STORE_MEMORY_CLEANUP_SECONDS", 600)
	if err != nil {
		return nil, err
	}
	strictRoles, err := getEnvAsBool("TOKEN_STRICT_ROLES", false)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getEnv("STORE_BACKEND", StoreBackendRedis))
	if backend != StoreBackendRedis && backend != StoreBackendMemory {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: want %s or %s", backend, StoreBackendRedis, StoreBackendMemory)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "token-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: requestTimeout,
		},
		Agora: AgoraConfig{
			AppID:          os.Getenv("AGORA_APP_ID"),
			AppCertificate: os.Getenv("AGORA_APP_CERTIFICATE"),
		},
		Store: StoreConfig{
			Backend:              backend,
			WriteTimeoutSeconds:  writeTimeout,
			MemoryCleanupSeconds: memoryCleanup,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		},
		Token: TokenConfig{
			StrictRoles: strictRoles,
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// WriteTimeout bounds a single background write-back.
func (s StoreConfig) WriteTimeout() time.Duration {
	if s.WriteTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// MemoryCleanupInterval is how often the in-memory store purges expired entries.
func (s StoreConfig) MemoryCleanupInterval() time.Duration {
	if s.MemoryCleanupSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.MemoryCleanupSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
