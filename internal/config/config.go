// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Storage       StorageConfig
	Forecast      ForecastConfig
	Replenishment ReplenishmentConfig
	Log           LogConfig
}

type ServerConfig struct {
	Enabled        bool
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the connection string, preferring DATABASE_URL when it is set.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URLString returns the connection string in URL form, as the pgx driver expects for migrations.
func (c DatabaseConfig) URLString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	SummaryTTLSeconds int
}

// StorageConfig describes the S3-compatible bucket run reports are archived to.
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type ForecastConfig struct {
	Oracle             string
	Alpha              float64
	HTTPEndpoint       string
	HTTPTimeoutSeconds int
	TokenURL           string
	ClientID           string
	ClientSecret       string
	Scopes             []string
}

type ReplenishmentConfig struct {
	WindowDays      int
	MinObservations int
	NSteps          int
	Horizon         int
	Workers         int
	Interval        time.Duration
	BusyPolicy      string
	RunOnStart      bool
	LockTTL         time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	BusyPolicySkip  = "skip"
	BusyPolicyQueue = "queue"
)

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = build()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_ENABLED", true)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "release")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "inventory")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 86400)
	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "replenishment")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "runs")
	viper.SetDefault("FORECAST_ORACLE", "moving_average")
	viper.SetDefault("FORECAST_ALPHA", 0.3)
	viper.SetDefault("FORECAST_HTTP_ENDPOINT", "")
	viper.SetDefault("FORECAST_HTTP_TIMEOUT_SECONDS", 10)
	viper.SetDefault("FORECAST_TOKEN_URL", "")
	viper.SetDefault("FORECAST_CLIENT_ID", "")
	viper.SetDefault("FORECAST_CLIENT_SECRET", "")
	viper.SetDefault("FORECAST_SCOPES", []string{})
	viper.SetDefault("REPLENISH_WINDOW_DAYS", 180)
	viper.SetDefault("REPLENISH_MIN_OBSERVATIONS", 30)
	viper.SetDefault("REPLENISH_N_STEPS", 30)
	viper.SetDefault("REPLENISH_HORIZON", 1)
	viper.SetDefault("REPLENISH_WORKERS", 4)
	viper.SetDefault("REPLENISH_INTERVAL", "24h")
	viper.SetDefault("REPLENISH_BUSY_POLICY", BusyPolicySkip)
	viper.SetDefault("REPLENISH_RUN_ON_START", false)
	viper.SetDefault("REPLENISH_LOCK_TTL", "6h")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
}

func build() *Config {
	setDefaults()

	// Read from environment variables
	viper.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Enabled:        viper.GetBool("SERVER_ENABLED"),
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:      viper.GetString("DATABASE_URL"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:           viper.GetBool("CACHE_ENABLED"),
			RedisURL:          viper.GetString("REDIS_URL"),
			RedisHost:         viper.GetString("REDIS_HOST"),
			RedisPort:         viper.GetString("REDIS_PORT"),
			RedisPassword:     viper.GetString("REDIS_PASSWORD"),
			RedisDB:           viper.GetInt("REDIS_DB"),
			SummaryTTLSeconds: viper.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
		Forecast: ForecastConfig{
			Oracle:             strings.ToLower(viper.GetString("FORECAST_ORACLE")),
			Alpha:              viper.GetFloat64("FORECAST_ALPHA"),
			HTTPEndpoint:       viper.GetString("FORECAST_HTTP_ENDPOINT"),
			HTTPTimeoutSeconds: viper.GetInt("FORECAST_HTTP_TIMEOUT_SECONDS"),
			TokenURL:           viper.GetString("FORECAST_TOKEN_URL"),
			ClientID:           viper.GetString("FORECAST_CLIENT_ID"),
			ClientSecret:       viper.GetString("FORECAST_CLIENT_SECRET"),
			Scopes:             viper.GetStringSlice("FORECAST_SCOPES"),
		},
		Replenishment: ReplenishmentConfig{
			WindowDays:      viper.GetInt("REPLENISH_WINDOW_DAYS"),
			MinObservations: viper.GetInt("REPLENISH_MIN_OBSERVATIONS"),
			NSteps:          viper.GetInt("REPLENISH_N_STEPS"),
			Horizon:         viper.GetInt("REPLENISH_HORIZON"),
			Workers:         viper.GetInt("REPLENISH_WORKERS"),
			Interval:        viper.GetDuration("REPLENISH_INTERVAL"),
			BusyPolicy:      strings.ToLower(viper.GetString("REPLENISH_BUSY_POLICY")),
			RunOnStart:      viper.GetBool("REPLENISH_RUN_ON_START"),
			LockTTL:         viper.GetDuration("REPLENISH_LOCK_TTL"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}
}

// Validate rejects settings the replenishment job cannot run with.
func (c *Config) Validate() error {
	r := c.Replenishment
	if r.WindowDays <= 0 {
		return fmt.Errorf("REPLENISH_WINDOW_DAYS must be positive, got %d", r.WindowDays)
	}
	if r.MinObservations < 1 {
		return fmt.Errorf("REPLENISH_MIN_OBSERVATIONS must be at least 1, got %d", r.MinObservations)
	}
	if r.NSteps < 1 {
		return fmt.Errorf("REPLENISH_N_STEPS must be at least 1, got %d", r.NSteps)
	}
	if r.Horizon < 1 {
		return fmt.Errorf("REPLENISH_HORIZON must be at least 1, got %d", r.Horizon)
	}
	if r.Interval <= 0 {
		return fmt.Errorf("REPLENISH_INTERVAL must be positive, got %s", r.Interval)
	}
	if r.BusyPolicy != BusyPolicySkip && r.BusyPolicy != BusyPolicyQueue {
		return fmt.Errorf("REPLENISH_BUSY_POLICY must be %q or %q, got %q", BusyPolicySkip, BusyPolicyQueue, r.BusyPolicy)
	}

	switch c.Forecast.Oracle {
	case "moving_average", "ses":
	case "http":
		if c.Forecast.HTTPEndpoint == "" {
			return fmt.Errorf("FORECAST_HTTP_ENDPOINT is required for the http oracle")
		}
	default:
		return fmt.Errorf("unknown FORECAST_ORACLE %q", c.Forecast.Oracle)
	}
	if c.Forecast.Oracle == "ses" && (c.Forecast.Alpha <= 0 || c.Forecast.Alpha > 1) {
		return fmt.Errorf("FORECAST_ALPHA must be in (0, 1], got %v", c.Forecast.Alpha)
	}

	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return fmt.Errorf("STORAGE_ENDPOINT and STORAGE_BUCKET are required when storage is enabled")
	}

	return nil
}

// Window returns the trailing window as a duration.
func (r ReplenishmentConfig) Window() time.Duration {
	return time.Duration(r.WindowDays) * 24 * time.Hour
}
