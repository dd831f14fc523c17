package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryQueue bool
	WorkerCount    int

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Session verification for notification action events.
	SessionJWTSecret string

	// Platform REST API (templates, call-log and message-sent writes).
	PlatformBaseURL  string
	PlatformAPIToken string
	PlatformTimeout  time.Duration

	// Push subsystem used to display/cancel decision prompts.
	PushBaseURL  string
	PushAPIToken string
	PushChannel  string

	// Device agent endpoint that opens outbound messaging links.
	DeviceAgentBaseURL string

	// Anti-spam defaults applied when an installation has no stored value.
	DefaultCooldownDays        int
	DefaultMinCallDurationSecs int
	DedupRetention             time.Duration

	// Audit outbox retry policy.
	OutboxMaxAttempts int
	OutboxBaseDelay   time.Duration
	OutboxInterval    time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ActionQueueURL      string

	CORSAllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),

		PlatformBaseURL:  strings.TrimRight(getEnv("PLATFORM_BASE_URL", ""), "/"),
		PlatformAPIToken: getEnv("PLATFORM_API_TOKEN", ""),
		PlatformTimeout:  getEnvAsDuration("PLATFORM_TIMEOUT", 10*time.Second),

		PushBaseURL:  strings.TrimRight(getEnv("PUSH_BASE_URL", ""), "/"),
		PushAPIToken: getEnv("PUSH_API_TOKEN", ""),
		PushChannel:  getEnv("PUSH_CHANNEL", "client-check"),

		DeviceAgentBaseURL: strings.TrimRight(getEnv("DEVICE_AGENT_BASE_URL", ""), "/"),

		DefaultCooldownDays:        getEnvAsInt("DEFAULT_COOLDOWN_DAYS", 7),
		DefaultMinCallDurationSecs: getEnvAsInt("DEFAULT_MIN_CALL_DURATION_SECS", 10),
		DedupRetention:             getEnvAsDuration("DEDUP_RETENTION", 7*24*time.Hour),

		OutboxMaxAttempts: getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 5),
		OutboxBaseDelay:   getEnvAsDuration("OUTBOX_BASE_DELAY", 5*time.Minute),
		OutboxInterval:    getEnvAsDuration("OUTBOX_INTERVAL", time.Minute),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ActionQueueURL:      getEnv("ACTION_QUEUE_URL", ""),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
	}
}

// CORSOrigins splits the comma-separated allowlist into origins.
func (c *Config) CORSOrigins() []string {
	if strings.TrimSpace(c.CORSAllowedOrigins) == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
