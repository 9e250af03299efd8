package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dynaconn/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Storage  StorageConfig
	Registry RegistryConfig
	Server   ServerConfig
	Pipeline PipelineConfig
	LogLevel string
}

// StorageConfig holds artifact store settings
type StorageConfig struct {
	// Root is the directory artifacts are written under.
	Root string
}

// RegistryConfig holds run-registry database settings
type RegistryConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// DSN is the connection string. For sqlite this is a file path.
	DSN string
}

// ServerConfig holds read-only API server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PipelineConfig holds batch execution settings
type PipelineConfig struct {
	// Workers bounds concurrent subjects. Zero means one per CPU.
	Workers int
	// WriterQueue is the async artifact writer's queue depth.
	WriterQueue int
	// WriterWorkers is the number of concurrent artifact writers.
	WriterWorkers int
	// WriterBudgetBytes caps the bytes of artifact payloads in flight.
	WriterBudgetBytes int64
	// FailFast aborts the batch on the first subject failure.
	FailFast bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Storage:  loadStorageConfig(),
		Server:   loadServerConfig(),
		Pipeline: loadPipelineConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}
	config.Registry = loadRegistryConfig(config.Storage.Root)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Root: getEnvOrDefault("ARTIFACT_ROOT", "./artifacts"),
	}
}

func loadRegistryConfig(storageRoot string) RegistryConfig {
	driver := getEnvOrDefault("REGISTRY_DRIVER", "sqlite")
	dsn := os.Getenv("REGISTRY_DSN")
	if dsn == "" && driver == "sqlite" {
		dsn = filepath.Join(storageRoot, "registry.db")
	}
	return RegistryConfig{Driver: driver, DSN: dsn}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         getEnvOrDefault("PORT", "8080"),
		ReadTimeout:  getEnvDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
	}
}

func loadPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Workers:           getEnvIntOrDefault("PIPELINE_WORKERS", 0),
		WriterQueue:       getEnvIntOrDefault("WRITER_QUEUE", 256),
		WriterWorkers:     getEnvIntOrDefault("WRITER_WORKERS", 4),
		WriterBudgetBytes: int64(getEnvIntOrDefault("WRITER_BUDGET_MB", 256)) << 20,
		FailFast:          getEnvBoolOrDefault("PIPELINE_FAIL_FAST", false),
	}
}

func validateConfig(config *Config) error {
	if config.Storage.Root == "" {
		return errors.Configuration("artifact root is required")
	}
	switch config.Registry.Driver {
	case "sqlite", "postgres":
	default:
		return errors.Configuration("registry driver must be sqlite or postgres")
	}
	if config.Registry.DSN == "" {
		return errors.Configuration("registry DSN is required")
	}
	if config.Pipeline.Workers < 0 {
		return errors.Configuration("pipeline workers cannot be negative")
	}
	if config.Pipeline.WriterQueue < 1 {
		return errors.Configuration("writer queue must be positive")
	}
	if config.Pipeline.WriterWorkers < 1 {
		return errors.Configuration("writer workers must be positive")
	}
	if config.Pipeline.WriterBudgetBytes < 1 {
		return errors.Configuration("writer budget must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
