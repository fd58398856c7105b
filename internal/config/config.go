// Package config reads the service settings from the environment, loading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultPort            = "8080"
	defaultMongoURI        = "mongodb://localhost:27017"
	defaultMongoDB         = "garage"
	defaultJWTExpiry       = 24 * time.Hour
	defaultMQTTClientID    = "garage-api"
	defaultMQTTTopicPrefix = "garage"
	defaultRateLimitRPS    = 10
	defaultRateLimitBurst  = 20
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultPersistTimeout  = 5 * time.Second
)

// Config holds the service settings.
type Config struct {
	Port            string
	MongoURI        string
	MongoDB         string
	JWTSecret       string
	JWTExpiry       time.Duration
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
	RateLimitRPS    rate.Limit
	RateLimitBurst  int
	TrustProxy      bool
	LogLevel        string
	LogFormat       string
	PersistTimeout  time.Duration

	// Owner account created at startup when missing.
	OwnerUsername string
	OwnerEmail    string
	OwnerPassword string
}

// Load reads .env (if any) and then the process environment. Unparseable
// numbers fall back to their defaults with a warning; a missing JWT_SECRET
// is an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", defaultPort),
		MongoURI:        getEnv("MONGO_URI", defaultMongoURI),
		MongoDB:         getEnv("MONGO_DB", defaultMongoDB),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTExpiry:       getDuration("JWT_EXPIRY", defaultJWTExpiry),
		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", defaultMQTTClientID),
		MQTTTopicPrefix: strings.Trim(getEnv("MQTT_TOPIC_PREFIX", defaultMQTTTopicPrefix), "/"),
		RateLimitRPS:    rate.Limit(getFloat("RATE_LIMIT_RPS", defaultRateLimitRPS)),
		RateLimitBurst:  getInt("RATE_LIMIT_BURST", defaultRateLimitBurst),
		TrustProxy:      getBool("TRUST_PROXY", false),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		PersistTimeout:  getDuration("PERSIST_TIMEOUT", defaultPersistTimeout),
		OwnerUsername:   os.Getenv("OWNER_USERNAME"),
		OwnerEmail:      os.Getenv("OWNER_EMAIL"),
		OwnerPassword:   os.Getenv("OWNER_PASSWORD"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

// MQTTEnabled reports whether notices should also go to an MQTT broker.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// BootstrapOwner reports whether an owner account should be ensured. All
// three OWNER_* values must be set.
func (c *Config) BootstrapOwner() bool {
	return c.OwnerUsername != "" && c.OwnerEmail != "" && c.OwnerPassword != ""
}

// SetupLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c *Config) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("log_level", c.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.WithFields(log.Fields{"key": key, "value": v}).Warn("Invalid integer setting, using default")
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.WithFields(log.Fields{"key": key, "value": v}).Warn("Invalid number setting, using default")
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": v}).Warn("Invalid boolean setting, using default")
		return fallback
	}
	return b
}

// getDuration accepts Go durations ("90m") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.WithFields(log.Fields{"key": key, "value": v}).Warn("Invalid duration setting, using default")
	return fallback
}
