package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "edu")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "edu")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 0, cfg.Session.MaxActive)
	assert.Equal(t, 10*time.Minute, cfg.Session.ResetCodeTTL)
	assert.Equal(t, 5*time.Minute, cfg.Session.ResetPermitTTL)
	assert.Equal(t, "refresh_token", cfg.Cookie.Name)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, 5, cfg.Session.ResetAttempts)
}

func TestLoadWithoutBrokerLeavesAMQPEmpty(t *testing.T) {
	setRequired(t)
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "")

	cfg := Load()

	assert.Empty(t, cfg.AMQPURL, "no broker means reset mail is sent directly")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "30")
	t.Setenv("MAX_ACTIVE_SESSIONS", "3")
	t.Setenv("RESET_CODE_TTL", "2m")
	t.Setenv("REFRESH_COOKIE_SECURE", "off")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")

	cfg := Load()

	assert.Equal(t, 30*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 3, cfg.Session.MaxActive)
	assert.Equal(t, 2*time.Minute, cfg.Session.ResetCodeTTL)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.AMQPURL)
}

func TestRateLimitNormalize(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 50*time.Second, cfg.TTL)
}

func TestCacheMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")

	cfg := LoadCacheConfig()

	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
}
