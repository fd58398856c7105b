package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var settingKeys = []string{
	"PORT", "MONGO_URI", "MONGO_DB", "JWT_SECRET", "JWT_EXPIRY", "MQTT_BROKER", "MQTT_CLIENT_ID",
	"MQTT_TOPIC_PREFIX", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL", "LOG_FORMAT", "PERSIST_TIMEOUT",
	"OWNER_USERNAME", "OWNER_EMAIL", "OWNER_PASSWORD", "TRUST_PROXY",
}

// clearEnv blanks every setting for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range settingKeys {
		t.Setenv(k, "")
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "garage", cfg.MongoDB)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, rate.Limit(10), cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.PersistTimeout)
	assert.False(t, cfg.MQTTEnabled())
	assert.False(t, cfg.BootstrapOwner())
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_EXPIRY", "90m")
	t.Setenv("MQTT_BROKER", "tcp://localhost:1883")
	t.Setenv("MQTT_TOPIC_PREFIX", "/shop/garage/")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PERSIST_TIMEOUT", "3")
	t.Setenv("OWNER_USERNAME", "boss")
	t.Setenv("OWNER_EMAIL", "boss@garage.test")
	t.Setenv("OWNER_PASSWORD", "password123")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 90*time.Minute, cfg.JWTExpiry)
	assert.True(t, cfg.MQTTEnabled())
	assert.Equal(t, "shop/garage", cfg.MQTTTopicPrefix)
	assert.Equal(t, rate.Limit(2.5), cfg.RateLimitRPS)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.PersistTimeout)
	assert.True(t, cfg.BootstrapOwner())
}

func TestConfig_BootstrapOwnerNeedsAllFields(t *testing.T) {
	full := Config{OwnerUsername: "boss", OwnerEmail: "boss@garage.test", OwnerPassword: "password123"}
	assert.True(t, full.BootstrapOwner())

	noEmail := full
	noEmail.OwnerEmail = ""
	assert.False(t, noEmail.BootstrapOwner())

	noUser := full
	noUser.OwnerUsername = ""
	assert.False(t, noUser.BootstrapOwner())

	noPassword := full
	noPassword.OwnerPassword = ""
	assert.False(t, noPassword.BootstrapOwner())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RATE_LIMIT_RPS", "fast")
	t.Setenv("RATE_LIMIT_BURST", "-1")
	t.Setenv("JWT_EXPIRY", "forever")
	t.Setenv("TRUST_PROXY", "sometimes")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, rate.Limit(10), cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_RequiresSecret(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are already set, blank or not.
	for _, k := range []string{"JWT_SECRET", "MONGO_DB"} {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("MONGO_DB")
	})

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nMONGO_DB=workshop\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "workshop", cfg.MongoDB)
}

func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	cfg.SetupLogging()
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	cfg = &Config{LogLevel: "nonsense", LogFormat: "text"}
	cfg.SetupLogging()
	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)
}
