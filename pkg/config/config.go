package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Supported document store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Mongo        MongoConfig
	Store        StoreConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Transition   TransitionConfig
	AcademicYear AcademicYearConfig
	Metrics      MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// MongoConfig points the mongo store driver at a deployment.
type MongoConfig struct {
	URI          string
	Database     string
	MaxBatchOps  int
	Transactions bool
}

// StoreConfig selects the document store backing the transition engine.
type StoreConfig struct {
	Driver      string
	OpTimeout   time.Duration
	MaxBatchOps int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TransitionConfig tunes the academic year transition run.
type TransitionConfig struct {
	BatchThreshold  int
	PageSize        int
	Timeout         time.Duration
	ContinueOnError bool
	LockEnabled     bool
	LockTTL         time.Duration
}

// AcademicYearConfig governs the read API cache.
type AcademicYearConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Mongo = MongoConfig{
		URI:          v.GetString("MONGO_URI"),
		Database:     v.GetString("MONGO_DATABASE"),
		MaxBatchOps:  v.GetInt("MONGO_MAX_BATCH_OPS"),
		Transactions: v.GetBool("MONGO_TRANSACTIONS"),
	}

	cfg.Store = StoreConfig{
		Driver:      strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		OpTimeout:   parseDuration(v.GetString("STORE_OP_TIMEOUT"), 30*time.Second),
		MaxBatchOps: v.GetInt("STORE_MAX_BATCH_OPS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Transition = TransitionConfig{
		BatchThreshold:  v.GetInt("TRANSITION_BATCH_THRESHOLD"),
		PageSize:        v.GetInt("TRANSITION_PAGE_SIZE"),
		Timeout:         parseDuration(v.GetString("TRANSITION_TIMEOUT"), 5*time.Minute),
		ContinueOnError: v.GetBool("TRANSITION_CONTINUE_ON_ERROR"),
		LockEnabled:     v.GetBool("ENABLE_TRANSITION_LOCK"),
		LockTTL:         parseDuration(v.GetString("TRANSITION_LOCK_TTL"), 10*time.Minute),
	}

	cfg.AcademicYear = AcademicYearConfig{
		CacheEnabled: v.GetBool("ENABLE_CACHE"),
		CacheTTL:     parseDuration(v.GetString("ACADEMIC_YEAR_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "school_admin")
	v.SetDefault("MONGO_MAX_BATCH_OPS", 1000)
	v.SetDefault("MONGO_TRANSACTIONS", false)

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("STORE_OP_TIMEOUT", "30s")
	v.SetDefault("STORE_MAX_BATCH_OPS", 500)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TRANSITION_BATCH_THRESHOLD", 400)
	v.SetDefault("TRANSITION_PAGE_SIZE", 200)
	v.SetDefault("TRANSITION_TIMEOUT", "5m")
	v.SetDefault("TRANSITION_CONTINUE_ON_ERROR", false)
	v.SetDefault("ENABLE_TRANSITION_LOCK", true)
	v.SetDefault("TRANSITION_LOCK_TTL", "10m")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("ACADEMIC_YEAR_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
