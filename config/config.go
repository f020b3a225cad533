package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // AFAD time zone must resolve on hosts without zoneinfo

	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Sources  SourcesConfig
	Dispatch DispatchConfig
	Push     PushConfig
	Schedule ScheduleConfig
	Kafka    KafkaConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
	AllowedOrigins          []string
	TriggerRateLimit        int // manual check requests per client per minute, 0 disables
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	MigrateOnStart  bool
}

// RedisConfig backs the cross-instance cycle guard. Empty URL means a
// process-local guard is used instead.
type RedisConfig struct {
	URL       string
	KeyPrefix string
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// SourcesConfig describes the three upstream seismic feeds.
type SourcesConfig struct {
	AFADURL      string
	KandilliURL  string
	EMSCURL      string
	FetchTimeout time.Duration
	Window       time.Duration
	AFADTimeZone string
	MinMagnitude float64
	EMSCLimit    int
	UserAgent    string
}

// DispatchConfig controls eligibility thresholds and fan-out limits.
type DispatchConfig struct {
	WorkerCount           int
	CycleTimeout          time.Duration
	PublishTimeout        time.Duration // bound on the background event-stream write
	ProximityRadiusKm     float64
	ProximityMinMagnitude float64
	MagnitudeThreshold    float64
}

type PushConfig struct {
	DryRun          bool
	CredentialsFile string
	ProjectID       string
	RateLimit       float64 // sends per second, 0 disables limiting
	Burst           int
}

// ScheduleConfig holds the poll cadence per source. The defaults approximate
// the original cron table: AFAD */2, KANDILLI 1-59/2 and EMSC 30-58/4. The
// EMSC cron only fires in minutes 30 to 58 of each hour; here it runs every
// 4 minutes around the clock, starting 30 seconds after boot.
type ScheduleConfig struct {
	Enabled          bool
	AFADInterval     time.Duration
	AFADOffset       time.Duration
	KandilliInterval time.Duration
	KandilliOffset   time.Duration
	EMSCInterval     time.Duration
	EMSCOffset       time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 3000),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:          getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			TriggerRateLimit:        getEnvInt("TRIGGER_RATE_LIMIT_RPM", 30),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			MigrateOnStart:  getEnvBool("DB_MIGRATE_ON_START", true),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "quakealert"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Sources: SourcesConfig{
			AFADURL:      getEnv("AFAD_URL", "https://deprem.afad.gov.tr/apiv2/event/filter"),
			KandilliURL:  getEnv("KANDILLI_URL", "https://api.orhanaydogdu.com.tr/deprem/kandilli/live"),
			EMSCURL:      getEnv("EMSC_URL", "https://www.seismicportal.eu/fdsnws/event/1/query"),
			FetchTimeout: getEnvDuration("SOURCE_FETCH_TIMEOUT", 30*time.Second),
			Window:       getEnvDuration("SOURCE_WINDOW", 2*time.Hour),
			AFADTimeZone: getEnv("AFAD_TIME_ZONE", "Europe/Istanbul"),
			MinMagnitude: getEnvFloat("SOURCE_MIN_MAGNITUDE", 1.0),
			EMSCLimit:    getEnvInt("EMSC_LIMIT", 100),
			UserAgent:    getEnv("SOURCE_USER_AGENT", "QuakeSafe-App/1.0"),
		},
		Dispatch: DispatchConfig{
			WorkerCount:           getEnvInt("DISPATCH_WORKER_COUNT", 32),
			CycleTimeout:          getEnvDuration("DISPATCH_CYCLE_TIMEOUT", 90*time.Second),
			PublishTimeout:        getEnvDuration("DISPATCH_PUBLISH_TIMEOUT", 5*time.Second),
			ProximityRadiusKm:     getEnvFloat("DISPATCH_PROXIMITY_RADIUS_KM", 140),
			ProximityMinMagnitude: getEnvFloat("DISPATCH_PROXIMITY_MIN_MAGNITUDE", 4.0),
			MagnitudeThreshold:    getEnvFloat("DISPATCH_MAGNITUDE_THRESHOLD", 5.0),
		},
		Push: PushConfig{
			DryRun:          getEnvBool("PUSH_DRY_RUN", false),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			RateLimit:       getEnvFloat("PUSH_RATE_LIMIT", 50),
			Burst:           getEnvInt("PUSH_BURST", 50),
		},
		Schedule: ScheduleConfig{
			Enabled:          getEnvBool("SCHEDULE_ENABLED", true),
			AFADInterval:     getEnvDuration("SCHEDULE_AFAD_INTERVAL", 2*time.Minute),
			AFADOffset:       getEnvDuration("SCHEDULE_AFAD_OFFSET", 0),
			KandilliInterval: getEnvDuration("SCHEDULE_KANDILLI_INTERVAL", 2*time.Minute),
			KandilliOffset:   getEnvDuration("SCHEDULE_KANDILLI_OFFSET", 1*time.Minute),
			EMSCInterval:     getEnvDuration("SCHEDULE_EMSC_INTERVAL", 4*time.Minute),
			EMSCOffset:       getEnvDuration("SCHEDULE_EMSC_OFFSET", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "seismic-events"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration and reports every invalid field at once
func (c *Config) Validate() error {
	var errs apperrors.MultiError
	invalid := func(field, format string, args ...any) {
		errs.Add(apperrors.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		invalid("SERVER_PORT", "invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		invalid("DB_MAX_CONNS", "database max connections must be at least 1")
	}
	if c.Dispatch.WorkerCount < 1 {
		invalid("DISPATCH_WORKER_COUNT", "dispatch worker count must be at least 1")
	}
	if c.Sources.FetchTimeout <= 0 {
		invalid("SOURCE_FETCH_TIMEOUT", "source fetch timeout must be positive")
	}
	if c.Sources.Window <= 0 {
		invalid("SOURCE_WINDOW", "source window must be positive")
	}
	if c.Dispatch.CycleTimeout <= 0 {
		invalid("DISPATCH_CYCLE_TIMEOUT", "cycle timeout must be positive")
	}
	if c.Dispatch.ProximityRadiusKm <= 0 {
		invalid("DISPATCH_PROXIMITY_RADIUS_KM", "proximity radius must be positive")
	}
	if c.Push.RateLimit < 0 {
		invalid("PUSH_RATE_LIMIT", "push rate limit must not be negative")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		invalid("KAFKA_BROKERS", "KAFKA_BROKERS and KAFKA_TOPIC are required when kafka is enabled")
	}
	if _, err := time.LoadLocation(c.Sources.AFADTimeZone); err != nil {
		invalid("AFAD_TIME_ZONE", "invalid AFAD time zone %q: %v", c.Sources.AFADTimeZone, err)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
