package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	AdminToken  string
	SeedDemo    bool

	OTLPEndpoint  string
	Observability ObservabilityConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Cache        CacheConfig
	KPIExport    KPIExportConfig
	Reports      ReportConfig
	Integrations IntegrationConfig
}

type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string
	OtelEnabled       bool
	OtelProtocol      string
	OtelSamplingRatio float64
}

type CacheConfig struct {
	Driver        string
	MaxEntries    int
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type KPIExportConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
	Interval  time.Duration
}

type ReportConfig struct {
	Storage    string
	LocalDir   string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string
}

type IntegrationConfig struct {
	WorkerEnabled     bool
	PollInterval      time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxAttempts       int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "greenledger"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		AdminToken:   strings.TrimSpace(getenv("ADMIN_TOKEN", "")),
		SeedDemo:     getenvBool("SEED_DEMO", false),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		Observability: ObservabilityConfig{
			LogLevel:          strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:         strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:       getenvBool("OTEL_ENABLED", false),
			OtelProtocol:      strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))),
			OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},

		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "sqlite")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "greenledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "greenledger.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		Cache: CacheConfig{
			Driver:        strings.ToLower(getenv("CACHE_DRIVER", "memory")),
			MaxEntries:    getenvInt("CACHE_MAX_ENTRIES", 1024),
			TTL:           getenvDuration("CACHE_TTL", 5*time.Minute),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("REDIS_DB", 0),
		},
		KPIExport: KPIExportConfig{
			Enabled:   getenvBool("KPI_EXPORT_ENABLED", false),
			Exporter:  strings.ToLower(getenv("KPI_EXPORT_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("KPI_EXPORT_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("KPI_EXPORT_AUTH_TOKEN", "")),
			Interval:  getenvDuration("KPI_EXPORT_INTERVAL", 15*time.Minute),
		},
		Reports: ReportConfig{
			Storage:    strings.ToLower(getenv("REPORT_STORAGE", "local")),
			LocalDir:   getenv("REPORT_LOCAL_DIR", "./data/reports"),
			S3Bucket:   getenv("REPORT_S3_BUCKET", ""),
			S3Region:   getenv("REPORT_S3_REGION", "us-east-1"),
			S3Endpoint: getenv("REPORT_S3_ENDPOINT", ""),
			S3Prefix:   getenv("REPORT_S3_PREFIX", "reports/"),
		},
		Integrations: IntegrationConfig{
			WorkerEnabled:     getenvBool("INTEGRATION_WORKER_ENABLED", true),
			PollInterval:      getenvDuration("INTEGRATION_POLL_INTERVAL", time.Hour),
			RequestTimeout:    getenvDuration("INTEGRATION_REQUEST_TIMEOUT", 15*time.Second),
			RequestsPerSecond: getenvFloat("INTEGRATION_REQUESTS_PER_SECOND", 2),
			Burst:             getenvInt("INTEGRATION_BURST", 4),
			MaxAttempts:       getenvInt("INTEGRATION_MAX_ATTEMPTS", 3),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
