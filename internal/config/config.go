// Package config loads code-bounty settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Data backends.
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	// Storage
	DataBackend         string
	FirestoreProjectID  string
	FirestoreDatabaseID string
	RedisURL            string

	// Identity
	AuthTokenSecret       string
	AuthTokenTTL          time.Duration
	AuthTokenIssuer       string
	MinPasswordLength     int
	BcryptCost            int
	SignInMaxFailures     int
	SignInFailureWindow   time.Duration
	RevocationPrunePeriod time.Duration

	// Async jobs
	EnableAsyncProcessing bool
	GoogleCloudProject    string
	GCPRegion             string
	CloudTasksQueue       string
	JobWorkerURL          string
	CloudTasksSecret      string
	CloudTasksMaxAttempts int32
	JobProcessingTimeout  time.Duration

	// Integrations
	SlackBotToken      string
	SlackBountyChannel string
	GitHubToken        string
	PublicBaseURL      string

	// Server settings
	Port                  string
	GinMode               string
	LogLevel              string
	ServerReadTimeout     time.Duration
	ServerWriteTimeout    time.Duration
	ServerShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		DataBackend:         getEnvDefault("DATA_BACKEND", BackendFirestore),
		FirestoreProjectID:  getEnvRequired("FIRESTORE_PROJECT_ID"),
		FirestoreDatabaseID: getEnvDefault("FIRESTORE_DATABASE_ID", "(default)"),
		RedisURL:            getEnvRequired("REDIS_URL"),

		AuthTokenSecret: getEnvRequired("AUTH_TOKEN_SECRET"),
		AuthTokenIssuer: getEnvDefault("AUTH_TOKEN_ISSUER", "code-bounty"),

		GoogleCloudProject: getEnvRequired("GOOGLE_CLOUD_PROJECT"),
		GCPRegion:          getEnvDefault("GCP_REGION", "europe-west1"),
		CloudTasksQueue:    getEnvDefault("CLOUD_TASKS_QUEUE", "bounty-jobs"),
		JobWorkerURL:       getEnvRequired("JOB_WORKER_URL"),
		CloudTasksSecret:   getEnvRequired("CLOUD_TASKS_SECRET"),

		SlackBotToken:      getEnvRequired("SLACK_BOT_TOKEN"),
		SlackBountyChannel: getEnvRequired("SLACK_BOUNTY_CHANNEL"),
		GitHubToken:        getEnvRequired("GITHUB_TOKEN"),
		PublicBaseURL:      getEnvDefault("PUBLIC_BASE_URL", ""),

		Port:     getEnvDefault("PORT", "8080"),
		GinMode:  getEnvDefault("GIN_MODE", "debug"),
		LogLevel: getEnvDefault("LOG_LEVEL", "info"),
	}

	cfg.AuthTokenTTL = p.duration("AUTH_TOKEN_TTL", 24*time.Hour)
	cfg.MinPasswordLength = p.int("AUTH_MIN_PASSWORD_LENGTH", 6)
	cfg.BcryptCost = p.int("AUTH_BCRYPT_COST", 12)
	cfg.SignInMaxFailures = p.int("SIGNIN_MAX_FAILURES", 5)
	cfg.SignInFailureWindow = p.duration("SIGNIN_FAILURE_WINDOW", 15*time.Minute)
	cfg.RevocationPrunePeriod = p.duration("REVOCATION_PRUNE_PERIOD", 10*time.Minute)

	cfg.EnableAsyncProcessing = p.bool("ENABLE_ASYNC_PROCESSING", false)
	cfg.CloudTasksMaxAttempts = int32(p.int("CLOUD_TASKS_MAX_ATTEMPTS", 10))
	cfg.JobProcessingTimeout = p.duration("JOB_PROCESSING_TIMEOUT", 2*time.Minute)

	cfg.ServerReadTimeout = p.duration("SERVER_READ_TIMEOUT", 30*time.Second)
	cfg.ServerWriteTimeout = p.duration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	cfg.ServerShutdownTimeout = p.duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SlackEnabled reports whether new bounties should be announced on Slack.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackBountyChannel != ""
}

// validate checks that all required configuration is present and valid.
func (c *Config) validate() error {
	switch c.DataBackend {
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("%w: FIRESTORE_PROJECT_ID is required when DATA_BACKEND=firestore", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: DATA_BACKEND %q (must be firestore or memory)", ErrInvalidConfig, c.DataBackend)
	}

	if len(c.AuthTokenSecret) < 16 {
		return fmt.Errorf("%w: AUTH_TOKEN_SECRET must be at least 16 characters", ErrInvalidConfig)
	}

	if c.EnableAsyncProcessing {
		required := map[string]string{
			"GOOGLE_CLOUD_PROJECT": c.GoogleCloudProject,
			"JOB_WORKER_URL":       c.JobWorkerURL,
			"CLOUD_TASKS_SECRET":   c.CloudTasksSecret,
		}
		for name, value := range required {
			if value == "" {
				return fmt.Errorf("%w: %s is required when ENABLE_ASYNC_PROCESSING=true", ErrInvalidConfig, name)
			}
		}
	}

	if c.GinMode != "debug" && c.GinMode != "release" && c.GinMode != "test" {
		return fmt.Errorf("%w: GIN_MODE %s (must be debug, release, or test)", ErrInvalidConfig, c.GinMode)
	}

	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warn" && c.LogLevel != "error" {
		return fmt.Errorf("%w: LOG_LEVEL %s (must be debug, info, warn, or error)", ErrInvalidConfig, c.LogLevel)
	}

	if c.MinPasswordLength < 1 {
		return fmt.Errorf("%w: AUTH_MIN_PASSWORD_LENGTH must be positive", ErrInvalidConfig)
	}
	if c.SignInMaxFailures < 1 {
		return fmt.Errorf("%w: SIGNIN_MAX_FAILURES must be positive", ErrInvalidConfig)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"AUTH_TOKEN_TTL", c.AuthTokenTTL},
		{"SIGNIN_FAILURE_WINDOW", c.SignInFailureWindow},
		{"REVOCATION_PRUNE_PERIOD", c.RevocationPrunePeriod},
		{"JOB_PROCESSING_TIMEOUT", c.JobProcessingTimeout},
		{"SERVER_READ_TIMEOUT", c.ServerReadTimeout},
		{"SERVER_WRITE_TIMEOUT", c.ServerWriteTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", c.ServerShutdownTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, d.name)
		}
	}

	return nil
}

// getEnvRequired gets an environment variable or returns empty string if not set.
// validate decides which of these are actually required.
func getEnvRequired(key string) string {
	return os.Getenv(key)
}

// getEnvDefault gets an environment variable with a default value.
func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser keeps the first parse failure so Load can report it.
type parser struct {
	err error
}

func (p *parser) fail(key, value, kind string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: invalid %s value for %s: %s", ErrInvalidConfig, kind, key, value)
	}
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, "boolean")
		return defaultValue
	}
	return b
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, "integer")
		return defaultValue
	}
	return n
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, "duration")
		return defaultValue
	}
	return d
}
