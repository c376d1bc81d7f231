package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds the PostgreSQL settings of the certificate registry.
// The registry is optional; it is enabled when Host is set.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectTimeoutSec  int
}

// Enabled reports whether a registry database is configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// ConnectTimeout bounds the startup ping. It defaults to five seconds.
func (c DatabaseConfig) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

// MinIOConfig holds the object storage settings of the certificate archive.
// The archive is optional; it is enabled when Endpoint is set.
type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PresignTTLSec int
}

// Enabled reports whether an archive bucket is configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

// AnalysisConfig points at the remote statement-analysis service.
type AnalysisConfig struct {
	BaseURL    string
	TimeoutSec int
}

// Timeout is the client-side deadline of one analysis or certificate request.
func (c AnalysisConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port          string
	SessionTTLSec int
	LogTZ         string
	Analysis      AnalysisConfig
	Database      DatabaseConfig
	MinIO         MinIOConfig
}

// SessionTTL is how long an idle browser session keeps its workspace.
func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

// Location is the time zone log timestamps are written in. An unknown zone falls
// back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.LogTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:          getEnv("PORT", "8080"),
		SessionTTLSec: getEnvInt("SESSION_TTL_SEC", 1800),
		LogTZ:         getEnv("LOG_TZ", "UTC"),
		Analysis: AnalysisConfig{
			BaseURL:    getEnv("ANALYSIS_API_URL", "http://localhost:8000"),
			TimeoutSec: getEnvInt("ANALYSIS_TIMEOUT_SEC", 120),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectTimeoutSec:  getEnvInt("DB_CONNECT_TIMEOUT_SEC", 5),
		},
		MinIO: MinIOConfig{
			Endpoint:      getEnv("MINIO_ENDPOINT", ""),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
			Bucket:        getEnv("MINIO_BUCKET", "rentscore-certificates"),
			UseSSL:        getEnvBool("MINIO_USE_SSL", false),
			PresignTTLSec: getEnvInt("MINIO_PRESIGN_TTL_SEC", 900),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
