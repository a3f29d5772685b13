// Package config loads the pipeline's single configuration structure
// from environment variables via GetEnv/GetEnvAsInt/GetEnvAsBool/
// GetEnvAsDuration helpers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ServerConfig holds the HTTP server's listen settings.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the tax-split memoization cache's Redis settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NATSConfig holds the run-lifecycle event publisher's settings.
type NATSConfig struct {
	URL string
}

// StorageConfig holds the object-store collaborator's settings.
type StorageConfig struct {
	BucketPrefix string
	S3Bucket     string
	S3Region     string
	LocalRoot    string
}

// PipelineConfig carries the structured configuration options the
// core pipeline recognizes, keyed to its external interfaces:
// strict_mapping, overwrite, default_gst_rate, rounding,
// template_registry_path, timeouts, company_state_table.
type PipelineConfig struct {
	StrictMapping        bool
	Overwrite            bool
	DefaultGSTRate       decimal.Decimal
	Rounding             string // "half_up" only, reserved for future extension
	TemplateRegistryPath string
	StageTimeouts        map[string]time.Duration
	CompanyStateTable    map[string]string
}

// AppConfig holds service identity/runtime metadata.
type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string
	Version     string
}

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
	App      AppConfig
}

// defaultStateTable is the fallback two-digit GSTIN prefix to canonical
// state name table, used unless STATE_TABLE_JSON-style overrides are
// introduced; kept here so the pipeline runs with no external config
// file for the common Indian states exercised by the golden scenarios.
var defaultStateTable = map[string]string{
	"01": "JAMMU AND KASHMIR", "02": "HIMACHAL PRADESH", "03": "PUNJAB",
	"04": "CHANDIGARH", "05": "UTTARAKHAND", "06": "HARYANA", "07": "DELHI",
	"08": "RAJASTHAN", "09": "UTTAR PRADESH", "10": "BIHAR", "11": "SIKKIM",
	"12": "ARUNACHAL PRADESH", "13": "NAGALAND", "14": "MANIPUR",
	"15": "MIZORAM", "16": "TRIPURA", "17": "MEGHALAYA", "18": "ASSAM",
	"19": "WEST BENGAL", "20": "JHARKHAND", "21": "ODISHA",
	"22": "CHHATTISGARH", "23": "MADHYA PRADESH", "24": "GUJARAT",
	"26": "DADRA AND NAGAR HAVELI AND DAMAN AND DIU", "27": "MAHARASHTRA",
	"29": "KARNATAKA", "30": "GOA", "31": "LAKSHADWEEP", "32": "KERALA",
	"33": "TAMIL NADU", "34": "PUDUCHERRY", "35": "ANDAMAN AND NICOBAR ISLANDS",
	"36": "TELANGANA", "37": "ANDHRA PRADESH", "38": "LADAKH",
}

var defaultStageTimeouts = map[string]time.Duration{
	"normalize": 60 * time.Second,
	"resolve":   30 * time.Second,
	"tax":       30 * time.Second,
	"pivot":     15 * time.Second,
	"batch":     15 * time.Second,
	"voucher":   60 * time.Second,
	"expense":   60 * time.Second,
}

// Load loads configuration from environment variables.
func Load(serviceName string) (*Config, error) {
	environment := GetEnv("GIN_MODE", "debug")

	rounding := GetEnv("ROUNDING_MODE", "half_up")
	if rounding != "half_up" {
		return nil, fmt.Errorf("unsupported rounding mode %q: only half_up is implemented", rounding)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: GetEnv("HOST", "0.0.0.0"),
			Port: GetEnvAsInt("PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnvAsInt("DB_PORT", 5432),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			DBName:          GetEnv("DB_NAME", serviceName+"_db"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    GetEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    GetEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: GetEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnvAsInt("REDIS_PORT", 6379),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL: GetEnv("NATS_URL", "nats://localhost:4222"),
		},
		Storage: StorageConfig{
			BucketPrefix: GetEnv("BUCKET_PREFIX", "ledgerpipe"),
			S3Bucket:     GetEnv("S3_BUCKET", ""),
			S3Region:     GetEnv("AWS_REGION", "ap-south-1"),
			LocalRoot:    GetEnv("LOCAL_STORAGE_ROOT", "./data"),
		},
		Pipeline: PipelineConfig{
			StrictMapping:         GetEnvAsBool("STRICT_MAPPING", false),
			Overwrite:             GetEnvAsBool("OVERWRITE_RUNS", false),
			DefaultGSTRate:        GetEnvAsDecimal("DEFAULT_GST_RATE", decimal.NewFromFloat(0.18)),
			Rounding:              rounding,
			TemplateRegistryPath:  GetEnv("TEMPLATE_REGISTRY_PATH", "./templates"),
			StageTimeouts:         defaultStageTimeouts,
			CompanyStateTable:     defaultStateTable,
		},
		App: AppConfig{
			Name:        serviceName,
			Environment: environment,
			LogLevel:    GetEnv("LOG_LEVEL", "info"),
			Version:     GetEnv("APP_VERSION", "0.1.0"),
		},
	}

	return cfg, nil
}

// GetDatabaseDSN returns the database connection string.
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddress returns the server's listen address.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetRedisAddress returns the Redis address.
func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// IsProduction reports whether the service is running in release mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "release"
}

// GetEnv returns an environment variable or a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsInt parses an environment variable as an int, or returns a default.
func GetEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsBool parses an environment variable as a bool, or returns a default.
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration parses an environment variable as a duration, or
// returns a default.
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvAsDecimal parses an environment variable as a decimal, or
// returns a default.
func GetEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}
