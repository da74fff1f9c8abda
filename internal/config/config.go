package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Remote    RemoteConfig
	Cache     CacheConfig
	Sync      SyncConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port string `validate:"required"`
	Host string
	Env  string
}

// RemoteConfig locates the remote document. Backend "memory" keeps the tree
// in process and is meant for development and tests.
type RemoteConfig struct {
	Backend     string        `validate:"oneof=couchdb memory"`
	Host        string        `validate:"required_if=Backend couchdb"`
	Port        string        `validate:"required_if=Backend couchdb"`
	User        string
	Password    string
	Name        string        `validate:"required_if=Backend couchdb"`
	DocID       string        `validate:"required"`
	WriteMode   string        `validate:"oneof=last-write-wins optimistic"`
	InitTimeout time.Duration `validate:"gt=0"`
}

// URL is the CouchDB address with credentials.
func (r RemoteConfig) URL() string {
	if r.User == "" {
		return fmt.Sprintf("http://%s:%s", r.Host, r.Port)
	}
	return fmt.Sprintf("http://%s:%s@%s:%s", r.User, r.Password, r.Host, r.Port)
}

type CacheConfig struct {
	Backend  string        `validate:"oneof=memory redis"`
	TTL      time.Duration `validate:"gt=0"`
	RedisURL string        `validate:"required_if=Backend redis"`
}

type SyncConfig struct {
	ThrottleWindow time.Duration `validate:"gt=0"`
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

func Load() (*Config, error) {
	godotenv.Load()

	initTimeout, err := getEnvAsDuration("REMOTE_INIT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvAsDuration("CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	throttle, err := getEnvAsDuration("SYNC_THROTTLE_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Remote: RemoteConfig{
			Backend:     getEnv("REMOTE_BACKEND", "couchdb"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5984"),
			User:        getEnv("DB_USER", "admin"),
			Password:    getEnv("DB_PASSWORD", "password"),
			Name:        getEnv("DB_NAME", "agency"),
			DocID:       getEnv("REMOTE_DOC_ID", "agency-data"),
			WriteMode:   getEnv("REMOTE_WRITE_MODE", "last-write-wins"),
			InitTimeout: initTimeout,
		},
		Cache: CacheConfig{
			Backend:  getEnv("CACHE_BACKEND", "memory"),
			TTL:      cacheTTL,
			RedisURL: getEnv("REDIS_URL", ""),
		},
		Sync: SyncConfig{
			ThrottleWindow: throttle,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 1048576)),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// WindowsDiverge reports whether the cache TTL and the rollup throttle
// window differ. They are independent settings; the server only warns.
func (c *Config) WindowsDiverge() bool {
	return c.Cache.TTL != c.Sync.ThrottleWindow
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
