package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Events    EventsConfig
	API       APIConfig
	Dispatch  DispatchConfig
	Scheduler SchedulerConfig
	Sender    SenderConfig
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// EventsConfig holds delivery-event publishing configuration (Redis)
type EventsConfig struct {
	RedisURL string
	Stream   string
	Enabled  bool
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port int
}

// DispatchConfig holds dispatch engine tuning
type DispatchConfig struct {
	TickInterval time.Duration
	PerTickCap   int
	BatchLimit   int
	BackoffBase  time.Duration
	WindowLength time.Duration
}

// SchedulerConfig holds recurring trigger scheduler configuration
type SchedulerConfig struct {
	AccountFanOut   int
	DefaultTimezone string
}

// SenderConfig holds outbound channel configuration
type SenderConfig struct {
	RatePerSecond   float64
	Burst           int
	MockSuccessRate float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	apiPort, err := getEnvInt("API_PORT", 8080)
	if err != nil {
		return nil, err
	}

	perTickCap, err := getEnvInt("DISPATCH_PER_TICK_CAP", 20)
	if err != nil {
		return nil, err
	}

	batchLimit, err := getEnvInt("DISPATCH_BATCH_LIMIT", 1000)
	if err != nil {
		return nil, err
	}

	tickMS, err := getEnvInt("DISPATCH_TICK_MS", 500)
	if err != nil {
		return nil, err
	}

	fanOut, err := getEnvInt("SCHEDULER_ACCOUNT_FAN_OUT", 5)
	if err != nil {
		return nil, err
	}

	ratePerSecond, err := getEnvFloat("SENDER_RATE_PER_SECOND", 50)
	if err != nil {
		return nil, err
	}

	burst, err := getEnvInt("SENDER_BURST", 20)
	if err != nil {
		return nil, err
	}

	successRate, err := getEnvFloat("SENDER_MOCK_SUCCESS_RATE", 0.92)
	if err != nil {
		return nil, err
	}

	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "bulkwave"),
			Password: getEnv("DB_PASSWORD", "bulkwave"),
			DBName:   getEnv("DB_NAME", "bulkwave"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Events: EventsConfig{
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Stream:   getEnv("EVENTS_STREAM", "delivery_events"),
			Enabled:  getEnv("EVENTS_ENABLED", "true") == "true",
		},
		API: APIConfig{
			Port: apiPort,
		},
		Dispatch: DispatchConfig{
			TickInterval: time.Duration(tickMS) * time.Millisecond,
			PerTickCap:   perTickCap,
			BatchLimit:   batchLimit,
			BackoffBase:  5 * time.Second,
			WindowLength: time.Minute,
		},
		Scheduler: SchedulerConfig{
			AccountFanOut:   fanOut,
			DefaultTimezone: getEnv("SCHEDULER_TZ", ""),
		},
		Sender: SenderConfig{
			RatePerSecond:   ratePerSecond,
			Burst:           burst,
			MockSuccessRate: successRate,
		},
	}, nil
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getEnvFloat retrieves a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
