package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	DatabaseURL     string
	RedisURL        string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	AnalysisEndpoint   string
	AnalysisAPIKey     string
	AnalysisAPIVersion string

	// Poll cadence against the external service. The status/result skew bound
	// is not a documented service guarantee, so all of these stay tunable.
	ProvisionPollInterval time.Duration
	ProvisionPollBudget   int
	StatusPollInterval    time.Duration
	StatusPollBudget      int
	SkewBackoffBase       time.Duration
	SkewBackoffAttempts   int
	RunTimeout            time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,
		DatabaseURL:     dbURL,
		RedisURL:        getEnv("REDIS_URL", ""),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		AnalysisEndpoint:   strings.TrimRight(getEnv("ANALYSIS_ENDPOINT", ""), "/"),
		AnalysisAPIKey:     getEnv("ANALYSIS_API_KEY", ""),
		AnalysisAPIVersion: getEnv("ANALYSIS_API_VERSION", "2024-12-01"),

		ProvisionPollInterval: getEnvDuration("PROVISION_POLL_INTERVAL", 10*time.Second),
		ProvisionPollBudget:   getEnvInt("PROVISION_POLL_BUDGET", 30),
		StatusPollInterval:    getEnvDuration("STATUS_POLL_INTERVAL", 10*time.Second),
		StatusPollBudget:      getEnvInt("STATUS_POLL_BUDGET", 60),
		SkewBackoffBase:       getEnvDuration("SKEW_BACKOFF_BASE", 2*time.Second),
		SkewBackoffAttempts:   getEnvInt("SKEW_BACKOFF_ATTEMPTS", 5),
		RunTimeout:            getEnvDuration("RUN_TIMEOUT", 20*time.Minute),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
