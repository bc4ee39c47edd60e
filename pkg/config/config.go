package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App             AppConfig      `mapstructure:"app"`
	Server          ServerConfig   `mapstructure:"server"`
	BookingDatabase DatabaseConfig `mapstructure:"booking_database"` // Booking service database
	HotelDatabase   DatabaseConfig `mapstructure:"hotel_database"`   // Hotel service database
	Redis           RedisConfig    `mapstructure:"redis"`
	Kafka           KafkaConfig    `mapstructure:"kafka"`
	Hotel           HotelConfig    `mapstructure:"hotel"`
	Lock            LockConfig     `mapstructure:"lock"`
	Saga            SagaConfig     `mapstructure:"saga"`
	OTel            OTelConfig     `mapstructure:"otel"`
	Log             LogConfig      `mapstructure:"log"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
	Enabled  bool     `mapstructure:"enabled"`
}

// HotelConfig holds settings for the hotel service client used by the
// booking service saga.
type HotelConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`  // per-attempt budget
	MaxRetries int    `mapstructure:"max_retries"` // retries after the initial attempt
}

// Timeout returns the per-attempt timeout as a duration
func (h *HotelConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutMS) * time.Millisecond
}

// LockConfig holds room lock engine settings used by the hotel service.
type LockConfig struct {
	HoldTTLMinutes       int `mapstructure:"hold_ttl_minutes"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	// RetentionDays removes RELEASED/EXPIRED locks older than this many
	// days during sweeps. Zero disables retention cleanup.
	RetentionDays int `mapstructure:"retention_days"`
}

// HoldTTL returns the hold time-to-live as a duration
func (l *LockConfig) HoldTTL() time.Duration {
	return time.Duration(l.HoldTTLMinutes) * time.Minute
}

// SweepInterval returns the sweep interval as a duration
func (l *LockConfig) SweepInterval() time.Duration {
	return time.Duration(l.SweepIntervalSeconds) * time.Second
}

// SagaConfig holds saga recovery settings used by the booking service.
type SagaConfig struct {
	RecoveryIntervalSeconds int `mapstructure:"recovery_interval_seconds"`
	// RecoveryMinAgeMinutes is how long a saga must sit untouched before
	// the recovery worker takes it over. Keep it above the saga timeout.
	RecoveryMinAgeMinutes int `mapstructure:"recovery_min_age_minutes"`
}

// RecoveryInterval returns the recovery scan interval as a duration
func (s *SagaConfig) RecoveryInterval() time.Duration {
	return time.Duration(s.RecoveryIntervalSeconds) * time.Second
}

// RecoveryMinAge returns the recovery staleness threshold as a duration
func (s *SagaConfig) RecoveryMinAge() time.Duration {
	return time.Duration(s.RecoveryMinAgeMinutes) * time.Minute
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// Read from .env file (optional)
	if err := v.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, env vars can still be set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Continue anyway, the file is optional
		}
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadWithPath loads configuration from a specific path
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "smartlodge")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	// Server defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	// Booking database (booking service)
	v.SetDefault("BOOKING_DATABASE_HOST", "localhost")
	v.SetDefault("BOOKING_DATABASE_PORT", 5432)
	v.SetDefault("BOOKING_DATABASE_USER", "postgres")
	v.SetDefault("BOOKING_DATABASE_PASSWORD", "postgres")
	v.SetDefault("BOOKING_DATABASE_DBNAME", "booking_db")
	v.SetDefault("BOOKING_DATABASE_SSLMODE", "disable")
	v.SetDefault("BOOKING_DATABASE_MAX_OPEN_CONNS", 50)
	v.SetDefault("BOOKING_DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("BOOKING_DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("BOOKING_DATABASE_CONN_MAX_IDLE_TIME", "30m")

	// Hotel database (hotel service)
	v.SetDefault("HOTEL_DATABASE_HOST", "localhost")
	v.SetDefault("HOTEL_DATABASE_PORT", 5432)
	v.SetDefault("HOTEL_DATABASE_USER", "postgres")
	v.SetDefault("HOTEL_DATABASE_PASSWORD", "postgres")
	v.SetDefault("HOTEL_DATABASE_DBNAME", "hotel_db")
	v.SetDefault("HOTEL_DATABASE_SSLMODE", "disable")
	v.SetDefault("HOTEL_DATABASE_MAX_OPEN_CONNS", 50)
	v.SetDefault("HOTEL_DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("HOTEL_DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("HOTEL_DATABASE_CONN_MAX_IDLE_TIME", "30m")

	// Redis defaults
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka defaults
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "smartlodge")
	v.SetDefault("KAFKA_ENABLED", true)

	// Hotel service client defaults (booking side)
	v.SetDefault("HOTEL_BASE_URL", "http://localhost:8081")
	v.SetDefault("HOTEL_TIMEOUT_MS", 5000)
	v.SetDefault("HOTEL_MAX_RETRIES", 3)

	// Lock engine defaults (hotel side)
	v.SetDefault("LOCK_HOLD_TTL_MINUTES", 15)
	v.SetDefault("LOCK_SWEEP_INTERVAL_SECONDS", 30)
	v.SetDefault("LOCK_RETENTION_DAYS", 0)

	// Saga recovery defaults (booking side)
	v.SetDefault("SAGA_RECOVERY_INTERVAL_SECONDS", 30)
	v.SetDefault("SAGA_RECOVERY_MIN_AGE_MINUTES", 5)

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "smartlodge")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Log defaults
	v.SetDefault("LOG_LEVEL", "info")
}

func bindConfig(v *viper.Viper, cfg *Config) error {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")

	// Booking database
	cfg.BookingDatabase.Host = v.GetString("BOOKING_DATABASE_HOST")
	cfg.BookingDatabase.Port = v.GetInt("BOOKING_DATABASE_PORT")
	cfg.BookingDatabase.User = v.GetString("BOOKING_DATABASE_USER")
	cfg.BookingDatabase.Password = v.GetString("BOOKING_DATABASE_PASSWORD")
	cfg.BookingDatabase.DBName = v.GetString("BOOKING_DATABASE_DBNAME")
	cfg.BookingDatabase.SSLMode = v.GetString("BOOKING_DATABASE_SSLMODE")
	cfg.BookingDatabase.MaxOpenConns = v.GetInt("BOOKING_DATABASE_MAX_OPEN_CONNS")
	cfg.BookingDatabase.MaxIdleConns = v.GetInt("BOOKING_DATABASE_MAX_IDLE_CONNS")
	cfg.BookingDatabase.ConnMaxLifetime = v.GetDuration("BOOKING_DATABASE_CONN_MAX_LIFETIME")
	cfg.BookingDatabase.ConnMaxIdleTime = v.GetDuration("BOOKING_DATABASE_CONN_MAX_IDLE_TIME")

	// Hotel database
	cfg.HotelDatabase.Host = v.GetString("HOTEL_DATABASE_HOST")
	cfg.HotelDatabase.Port = v.GetInt("HOTEL_DATABASE_PORT")
	cfg.HotelDatabase.User = v.GetString("HOTEL_DATABASE_USER")
	cfg.HotelDatabase.Password = v.GetString("HOTEL_DATABASE_PASSWORD")
	cfg.HotelDatabase.DBName = v.GetString("HOTEL_DATABASE_DBNAME")
	cfg.HotelDatabase.SSLMode = v.GetString("HOTEL_DATABASE_SSLMODE")
	cfg.HotelDatabase.MaxOpenConns = v.GetInt("HOTEL_DATABASE_MAX_OPEN_CONNS")
	cfg.HotelDatabase.MaxIdleConns = v.GetInt("HOTEL_DATABASE_MAX_IDLE_CONNS")
	cfg.HotelDatabase.ConnMaxLifetime = v.GetDuration("HOTEL_DATABASE_CONN_MAX_LIFETIME")
	cfg.HotelDatabase.ConnMaxIdleTime = v.GetDuration("HOTEL_DATABASE_CONN_MAX_IDLE_TIME")

	// Redis
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Kafka
	brokersStr := v.GetString("KAFKA_BROKERS")
	cfg.Kafka.Brokers = strings.Split(brokersStr, ",")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")
	cfg.Kafka.Enabled = v.GetBool("KAFKA_ENABLED")

	// Hotel service client
	cfg.Hotel.BaseURL = v.GetString("HOTEL_BASE_URL")
	cfg.Hotel.TimeoutMS = v.GetInt("HOTEL_TIMEOUT_MS")
	cfg.Hotel.MaxRetries = v.GetInt("HOTEL_MAX_RETRIES")

	// Lock engine
	cfg.Lock.HoldTTLMinutes = v.GetInt("LOCK_HOLD_TTL_MINUTES")
	cfg.Lock.SweepIntervalSeconds = v.GetInt("LOCK_SWEEP_INTERVAL_SECONDS")
	cfg.Lock.RetentionDays = v.GetInt("LOCK_RETENTION_DAYS")

	// Saga recovery
	cfg.Saga.RecoveryIntervalSeconds = v.GetInt("SAGA_RECOVERY_INTERVAL_SECONDS")
	cfg.Saga.RecoveryMinAgeMinutes = v.GetInt("SAGA_RECOVERY_MIN_AGE_MINUTES")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Log
	cfg.Log.Level = v.GetString("LOG_LEVEL")

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Hotel.TimeoutMS <= 0 {
		return fmt.Errorf("hotel timeout must be positive, got %d", c.Hotel.TimeoutMS)
	}

	if c.Hotel.MaxRetries < 0 {
		return fmt.Errorf("hotel max retries must not be negative, got %d", c.Hotel.MaxRetries)
	}

	if c.Lock.HoldTTLMinutes <= 0 {
		return fmt.Errorf("lock hold TTL must be positive, got %d", c.Lock.HoldTTLMinutes)
	}

	if c.Lock.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("lock sweep interval must be positive, got %d", c.Lock.SweepIntervalSeconds)
	}

	return nil
}

// ValidateBookingDatabase validates booking database configuration
func (c *Config) ValidateBookingDatabase() error {
	if c.BookingDatabase.Host == "" {
		return fmt.Errorf("BOOKING_DATABASE_HOST is required")
	}
	if c.BookingDatabase.DBName == "" {
		return fmt.Errorf("BOOKING_DATABASE_DBNAME is required")
	}
	return nil
}

// ValidateHotelDatabase validates hotel database configuration
func (c *Config) ValidateHotelDatabase() error {
	if c.HotelDatabase.Host == "" {
		return fmt.Errorf("HOTEL_DATABASE_HOST is required")
	}
	if c.HotelDatabase.DBName == "" {
		return fmt.Errorf("HOTEL_DATABASE_DBNAME is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
