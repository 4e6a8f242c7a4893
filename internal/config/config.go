// Package config loads process configuration from the environment and an optional .env file.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"surveyengine/internal/logger"
	"surveyengine/internal/stats"
)

// Config is the full process configuration
type Config struct {
	MongoURI  string
	MongoDB   string
	RedisAddr string
	HTTPPort  string

	JWTSecret    string
	HostUsername string
	HostPassword string
	SessionTTL   time.Duration

	AMQPURL      string
	AMQPExchange string

	Stats            stats.QueueConfig
	LiveDataInterval time.Duration
	SurveyCacheTTL   time.Duration

	Log         logger.Config
	CORSOrigins []string
}

// Load reads .env (when present) and then the environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	def := stats.DefaultQueueConfig()
	return &Config{
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getEnv("MONGO_DB", "surveys"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:  getEnv("HTTP_PORT", "8080"),

		JWTSecret:    getEnv("JWT_SECRET", "change-me"),
		HostUsername: getEnv("HOST_USERNAME", "admin"),
		HostPassword: getEnv("HOST_PASSWORD", "admin"),
		SessionTTL:   getEnvDuration("SESSION_TTL", 30*24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "survey.events"),

		Stats: stats.QueueConfig{
			Workers:     getEnvInt("STATS_WORKERS", def.Workers),
			Size:        getEnvInt("STATS_QUEUE_SIZE", def.Size),
			MaxAttempts: getEnvInt("STATS_MAX_ATTEMPTS", def.MaxAttempts),
			RetryDelay:  getEnvDuration("STATS_RETRY_DELAY", def.RetryDelay),
			Timeout:     getEnvDuration("STATS_TIMEOUT", def.Timeout),
		},
		LiveDataInterval: getEnvDuration("LIVE_DATA_INTERVAL", time.Second),
		SurveyCacheTTL:   getEnvDuration("SURVEY_CACHE_TTL", 24*time.Hour),

		Log: logger.Config{
			Level:      getEnv("LOG_LEVEL", "info"),
			IncludeSrc: getEnvBool("LOG_SOURCE", false),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", val)
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", val)
		return defaultVal
	}
	return b
}

// getEnvDuration accepts Go durations ("250ms", "1h") or plain milliseconds
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	slog.Warn("invalid duration in environment, using default", "key", key, "value", val)
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
