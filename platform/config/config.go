// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMigrate() bool
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for asynq clients, workers and the periodic scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetScoringCron() string
	GetScoringLocation() *time.Location
}

// ImportConfig provides limits for the import entry point.
type ImportConfig interface {
	GetImportMaxWrites() int
	GetImportMaxBodyBytes() int64
	GetCommitChunkSize() int
}

// ScoringConfig provides settings for the scoring recalculator.
type ScoringConfig interface {
	GetScoringPreserveHold() bool
	GetScoringLockTTL() time.Duration
	GetCommitChunkSize() int
}

// OwnerPoolConfig selects the role-pool collaborator source.
type OwnerPoolConfig interface {
	GetOwnerPoolSource() string
	GetOwnerPoolFile() string
}

// MinIOConfig provides settings for the raw import archive.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketImports() string
	IsMinIOEnabled() bool
}

// PhoneConfig provides the default region for phone normalization.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

const (
	// OwnerPoolSourcePostgres reads the role pool from the owner_pool table.
	OwnerPoolSourcePostgres = "postgres"
	// OwnerPoolSourceFile reads the role pool from a YAML file.
	OwnerPoolSourceFile = "file"
)

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	DatabaseMigrate     bool
	JWTAccessSecret     string
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	RedisURL            string
	RedisTLSInsecure    bool
	AsynqQueueName      string
	AsynqConcurrency    int
	ScoringCron         string
	ScoringLocation     *time.Location
	ScoringPreserveHold bool
	ScoringLockTTL      time.Duration
	ImportMaxWrites     int
	ImportMaxBodyBytes  int64
	CommitChunkSize     int
	OwnerPoolSource     string
	OwnerPoolFile       string
	PhoneDefaultRegion  string
	MinIOEndpoint       string
	MinIOAccessKey      string
	MinIOSecretKey      string
	MinIOUseSSL         bool
	MinioBucketImports  string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string   { return c.DatabaseURL }
func (c *Config) GetDatabaseMigrate() bool { return c.DatabaseMigrate }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetScoringCron() string             { return c.ScoringCron }
func (c *Config) GetScoringLocation() *time.Location { return c.ScoringLocation }

// ImportConfig implementation
func (c *Config) GetImportMaxWrites() int      { return c.ImportMaxWrites }
func (c *Config) GetImportMaxBodyBytes() int64 { return c.ImportMaxBodyBytes }
func (c *Config) GetCommitChunkSize() int      { return c.CommitChunkSize }

// ScoringConfig implementation
func (c *Config) GetScoringPreserveHold() bool     { return c.ScoringPreserveHold }
func (c *Config) GetScoringLockTTL() time.Duration { return c.ScoringLockTTL }

// OwnerPoolConfig implementation
func (c *Config) GetOwnerPoolSource() string { return c.OwnerPoolSource }
func (c *Config) GetOwnerPoolFile() string   { return c.OwnerPoolFile }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketImports() string { return c.MinioBucketImports }
func (c *Config) IsMinIOEnabled() bool          { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
// JWT settings are only required by the HTTP server, see RequireJWT.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	timezone := getEnv("SCORING_TIMEZONE", "UTC")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("SCORING_TIMEZONE %q is invalid: %w", timezone, err)
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabaseMigrate:     strings.EqualFold(getEnv("DATABASE_MIGRATE", "true"), "true"),
		JWTAccessSecret:     getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		ScoringCron:         getEnv("SCORING_CRON", "0 3 * * *"),
		ScoringLocation:     location,
		ScoringPreserveHold: strings.EqualFold(getEnv("SCORING_PRESERVE_HOLD", "false"), "true"),
		ScoringLockTTL:      mustDuration(getEnv("SCORING_LOCK_TTL", "30m")),
		ImportMaxWrites:     mustInt(getEnv("IMPORT_MAX_WRITES", "5000")),
		ImportMaxBodyBytes:  mustInt64(getEnv("IMPORT_MAX_BODY_BYTES", "10485760")),
		CommitChunkSize:     mustInt(getEnv("COMMIT_CHUNK_SIZE", "500")),
		OwnerPoolSource:     strings.ToLower(getEnv("OWNER_POOL_SOURCE", OwnerPoolSourcePostgres)),
		OwnerPoolFile:       getEnv("OWNER_POOL_FILE", ""),
		PhoneDefaultRegion:  strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "US")),
		MinIOEndpoint:       getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:      getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:      getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:         strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketImports:  getEnv("MINIO_BUCKET_IMPORTS", "prospect-imports"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ImportMaxWrites < 1 {
		return nil, fmt.Errorf("IMPORT_MAX_WRITES must be a positive integer")
	}
	if cfg.CommitChunkSize < 1 {
		return nil, fmt.Errorf("COMMIT_CHUNK_SIZE must be a positive integer")
	}
	switch cfg.OwnerPoolSource {
	case OwnerPoolSourcePostgres:
	case OwnerPoolSourceFile:
		if cfg.OwnerPoolFile == "" {
			return nil, fmt.Errorf("OWNER_POOL_FILE is required when OWNER_POOL_SOURCE is file")
		}
	default:
		return nil, fmt.Errorf("OWNER_POOL_SOURCE must be %q or %q", OwnerPoolSourcePostgres, OwnerPoolSourceFile)
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// RequireJWT reports an error when the HTTP server cannot authenticate callers.
func (c *Config) RequireJWT() error {
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}

// RequireRedis reports an error when asynq cannot be configured.
func (c *Config) RequireRedis() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
