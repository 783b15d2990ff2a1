package common

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Server   ServerConfig
	Ingest   IngestConfig
	Tasks    TasksConfig
}

// AppConfig identifies the running application instance
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr       string
	MaxUploadBytes int64
}

// IngestConfig holds pipeline and worker-queue configuration
type IngestConfig struct {
	UploadDir      string
	ChunkSize      int
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration

	// Optional drop directory. Tabular files appearing under WatchDir are
	// ingested automatically using WatchColumnMap.
	WatchDir       string
	WatchColumnMap map[string]string
	WatchDebounce  time.Duration
}

// TasksConfig holds task-result retention configuration
type TasksConfig struct {
	ResultTTL   time.Duration
	CleanupSpec string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "jobs-ingest"),
			Environment: getEnv("ENVIRONMENT", "development"),
			Debug:       getEnvAsBool("DEBUG", true),
		},
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 32<<20),
		},
		Ingest: IngestConfig{
			UploadDir:      getEnv("UPLOAD_DIR", "/data/uploads"),
			ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
			Workers:        getEnvAsInt("INGEST_WORKERS", 4),
			QueueSize:      getEnvAsInt("INGEST_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("INGEST_PROCESS_TIMEOUT", 3*time.Minute),
			WatchDir:       getEnv("INGEST_WATCH_DIR", ""),
			WatchColumnMap: getEnvAsStringMap("INGEST_WATCH_MAP"),
			WatchDebounce:  getEnvAsDuration("INGEST_WATCH_DEBOUNCE", 500*time.Millisecond),
		},
		Tasks: TasksConfig{
			ResultTTL:   getEnvAsDuration("TASK_RESULT_TTL", 24*time.Hour),
			CleanupSpec: getEnv("TASK_CLEANUP_SPEC", "0 4 * * *"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsStringMap parses a JSON object of string values, e.g.
// {"title":"JobTitle","salary":"Pay"}. Missing or malformed input yields nil.
func getEnvAsStringMap(key string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		return nil
	}
	return m
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Ingest.UploadDir == "" {
		return NewAppError("CONFIG_ERROR", "UPLOAD_DIR is required", ErrInvalidInput)
	}
	if c.Ingest.ChunkSize <= 0 {
		return NewAppError("CONFIG_ERROR", "CHUNK_SIZE must be positive", ErrInvalidInput)
	}
	if c.Ingest.WatchDir != "" && len(c.Ingest.WatchColumnMap) == 0 {
		return NewAppError("CONFIG_ERROR", "INGEST_WATCH_MAP is required when INGEST_WATCH_DIR is set", ErrInvalidInput)
	}
	return nil
}
