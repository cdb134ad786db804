package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Env string

	// Server
	Port string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// JWT. An empty secret disables authentication.
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Import
	ImportWorkers int

	// Notifications
	NotifyDedupe   bool
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Scheduler
	SchedulerEnabled bool
	BudgetCheckHour  int
	GoalCheckWeekday time.Weekday
	GoalCheckHour    int
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "finmanager"),
		DBPassword: getEnv("DB_PASSWORD", "finmanager"),
		DBName:     getEnv("DB_NAME", "finmanager"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "finmanager.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		ImportWorkers: getEnvInt("IMPORT_WORKERS", 4),

		NotifyDedupe:   getEnvBool("NOTIFY_DEDUPE", false),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "finmanager.notifications"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "notification.created"),

		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
		BudgetCheckHour:  getEnvInt("SCHEDULE_BUDGET_CHECK_HOUR", 0),
		GoalCheckWeekday: getEnvWeekday("SCHEDULE_GOAL_CHECK_WEEKDAY", time.Sunday),
		GoalCheckHour:    getEnvInt("SCHEDULE_GOAL_CHECK_HOUR", 12),
	}

	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	if config.ImportWorkers < 1 {
		log.Printf("Warning: IMPORT_WORKERS must be positive, falling back to 1\n")
		config.ImportWorkers = 1
	}
	if config.BudgetCheckHour < 0 || config.BudgetCheckHour > 23 {
		log.Printf("Warning: SCHEDULE_BUDGET_CHECK_HOUR out of range, falling back to 0\n")
		config.BudgetCheckHour = 0
	}
	if config.GoalCheckHour < 0 || config.GoalCheckHour > 23 {
		log.Printf("Warning: SCHEDULE_GOAL_CHECK_HOUR out of range, falling back to 12\n")
		config.GoalCheckHour = 12
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// AuthEnabled reports whether bearer-token authentication is switched on.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %t\n", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvWeekday(key string, defaultValue time.Weekday) time.Weekday {
	raw := strings.ToLower(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if raw == name || raw == name[:3] {
			return d
		}
	}
	log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
	return defaultValue
}
