package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once in main and handed to every component that needs it.
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	// Location is used for calendar dates (reconciliation date, daily shift views).
	Location *time.Location

	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	PubSub    PubSubConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig

	CorsOrigins []string

	SkipMigrations   bool
	ReportCacheOn    bool
	ReportCacheTTL   time.Duration
	LowStockPageSize int
}

type DatabaseConfig struct {
	Driver          string // mysql | postgres | sqlite
	User            string
	Password        string
	Host            string
	Port            string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// LogFile enables gorm query logging to a file when set.
	LogFile string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type AuthConfig struct {
	JwtSecret     string
	TokenLifespan time.Duration
}

type PubSubConfig struct {
	ProjectId       string
	LossAlertTopic  string
	CredentialsJSON string
}

func (c PubSubConfig) Enabled() bool {
	return c.ProjectId != "" && c.LossAlertTopic != ""
}

// StorageConfig points product image uploads at a GCS bucket.
type StorageConfig struct {
	Bucket          string
	CredentialsJSON string
	// PublicBaseURL defaults to https://storage.googleapis.com/<bucket>.
	PublicBaseURL string
}

func (c StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	loc, err := time.LoadLocation(stringFromEnv("APP_LOCATION", "UTC"))
	if err != nil {
		loc = time.UTC
	}

	return &Config{
		Port:        stringFromEnv("PORT", "8080"),
		Environment: stringFromEnv("ENVIRONMENT", "development"),
		LogLevel:    stringFromEnv("LOG_LEVEL", "info"),
		Location:    loc,
		Database: DatabaseConfig{
			Driver:          strings.ToLower(stringFromEnv("DB_DRIVER", "mysql")),
			User:            os.Getenv("DB_USER"),
			Password:        os.Getenv("DB_PASSWORD"),
			Host:            stringFromEnv("DB_HOST", "127.0.0.1"),
			Port:            stringFromEnv("DB_PORT", "3306"),
			Name:            stringFromEnv("DB_NAME", "bar_management"),
			MaxOpenConns:    intFromEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    intFromEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second,
			LogFile:         os.Getenv("GORM_LOG"),
		},
		Redis: RedisConfig{
			Address:  stringFromEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intFromEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JwtSecret:     stringFromEnv("API_SECRET", "change-this-secret-in-production"),
			TokenLifespan: time.Duration(intFromEnv("TOKEN_HOUR_LIFESPAN", 8)) * time.Hour,
		},
		PubSub: PubSubConfig{
			ProjectId:       firstNonEmpty(os.Getenv("PUBSUB_PROJECT_ID"), os.Getenv("GOOGLE_CLOUD_PROJECT")),
			LossAlertTopic:  os.Getenv("PUBSUB_LOSS_ALERT_TOPIC"),
			CredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("GCS_BUCKET"),
			CredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),
			PublicBaseURL:   os.Getenv("GCS_PUBLIC_BASE_URL"),
		},
		RateLimit:        loadRateLimitConfig(),
		CorsOrigins:      splitAndTrim(stringFromEnv("CORS_ORIGINS", "http://localhost:3000")),
		SkipMigrations:   boolFromEnv("SKIP_MIGRATIONS"),
		ReportCacheOn:    boolFromEnv("ENABLE_REPORT_CACHE"),
		ReportCacheTTL:   time.Duration(intFromEnv("REPORT_CACHE_TTL_SECONDS", 120)) * time.Second,
		LowStockPageSize: intFromEnv("LOW_STOCK_PAGE_SIZE", 100),
	}
}

func stringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y" || v == "on"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
