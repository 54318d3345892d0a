package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	JWT      JWTConfig
	Dispatch DispatchConfig
	OTP      OTPConfig
	Location LocationConfig
	Pricing  PricingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	URL     string
	Enabled bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// DispatchConfig holds the wave protocol tunables. Defaults are the
// production values; change them together or matching tests will drift.
type DispatchConfig struct {
	BatchSize           int
	MaxWaves            int
	InitialRadiusKm     float64
	RadiusIncrementKm   float64
	MaxRadiusKm         float64
	OfferTimeoutSeconds int
}

// OTPConfig holds pickup OTP tunables
type OTPConfig struct {
	Length      int
	TTLMinutes  int
	MaxAttempts int
}

// LocationConfig holds driver location ingest tunables
type LocationConfig struct {
	TTLMinutes int
}

// PricingConfig holds fare estimation tunables
type PricingConfig struct {
	AverageSpeedKmh float64
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "dispatch"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConns:       getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:       getEnvAsInt("DB_MIN_CONNS", 5),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "file://migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		Dispatch: DispatchConfig{
			BatchSize:           getEnvAsInt("DISPATCH_BATCH_SIZE", 3),
			MaxWaves:            getEnvAsInt("DISPATCH_MAX_WAVES", 3),
			InitialRadiusKm:     getEnvAsFloat("DISPATCH_INITIAL_RADIUS_KM", 3.0),
			RadiusIncrementKm:   getEnvAsFloat("DISPATCH_RADIUS_INCREMENT_KM", 2.0),
			MaxRadiusKm:         getEnvAsFloat("DISPATCH_MAX_RADIUS_KM", 10.0),
			OfferTimeoutSeconds: getEnvAsInt("DISPATCH_OFFER_TIMEOUT_SECONDS", 15),
		},
		OTP: OTPConfig{
			Length:      getEnvAsInt("PICKUP_OTP_LENGTH", 6),
			TTLMinutes:  getEnvAsInt("PICKUP_OTP_TTL_MIN", 5),
			MaxAttempts: getEnvAsInt("PICKUP_OTP_MAX_ATTEMPTS", 3),
		},
		Location: LocationConfig{
			TTLMinutes: getEnvAsInt("LOCATION_TTL_MIN", 5),
		},
		Pricing: PricingConfig{
			AverageSpeedKmh: getEnvAsFloat("PRICING_AVERAGE_SPEED_KMH", 25.0),
		},
	}

	if cfg.Dispatch.BatchSize <= 0 {
		return nil, fmt.Errorf("DISPATCH_BATCH_SIZE must be positive")
	}
	if cfg.Dispatch.MaxWaves <= 0 {
		return nil, fmt.Errorf("DISPATCH_MAX_WAVES must be positive")
	}
	if cfg.Dispatch.InitialRadiusKm <= 0 || cfg.Dispatch.MaxRadiusKm < cfg.Dispatch.InitialRadiusKm {
		return nil, fmt.Errorf("dispatch radius configuration is inconsistent")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection URL, as used by the migration runner.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
