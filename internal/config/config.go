package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Workflow WorkflowConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port            int
	Env             string
	LogLevel        string
	RateLimitPerSec float64
	RateLimitBurst  int
}

// WorkflowConfig holds the time-and-attendance workflow knobs.
type WorkflowConfig struct {
	// MultiTaskingEnabled permits more than one active work segment per
	// technician when true.
	MultiTaskingEnabled bool
	// TimerLockTTL bounds how long a crashed start/resume can hold the
	// per-technician lock.
	TimerLockTTL time.Duration
	// MaxShiftHours is the point at which the janitor force-closes a shift
	// that was never clocked out.
	MaxShiftHours int
	// JanitorInterval is how often the stale-shift janitor runs.
	JanitorInterval time.Duration
}

func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, relying on environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "workshop"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	ratePerSec, err := strconv.ParseFloat(getEnv("RATE_LIMIT_PER_SEC", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_SEC: %w", err)
	}
	rateBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	config.App = AppConfig{
		Port:            appPort,
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RateLimitPerSec: ratePerSec,
		RateLimitBurst:  rateBurst,
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "12h"),
	}

	// Workflow configuration
	lockTTL, err := time.ParseDuration(getEnv("TIMER_LOCK_TTL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMER_LOCK_TTL: %w", err)
	}
	maxShiftHours, err := strconv.Atoi(getEnv("MAX_SHIFT_HOURS", "16"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_SHIFT_HOURS: %w", err)
	}
	janitorInterval, err := time.ParseDuration(getEnv("SHIFT_JANITOR_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHIFT_JANITOR_INTERVAL: %w", err)
	}

	config.Workflow = WorkflowConfig{
		MultiTaskingEnabled: getEnv("MULTI_TASKING_ENABLED", "false") == "true",
		TimerLockTTL:        lockTTL,
		MaxShiftHours:       maxShiftHours,
		JanitorInterval:     janitorInterval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Workflow.TimerLockTTL <= 0 {
		return fmt.Errorf("TIMER_LOCK_TTL must be positive")
	}
	if c.Workflow.MaxShiftHours <= 0 {
		return fmt.Errorf("MAX_SHIFT_HOURS must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
