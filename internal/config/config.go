package config // package config loads application configuration from environment variables

import (
	"log"  // log is used to report configuration errors and halt execution
	"os"   // os provides access to environment variables
	"time" // durations for TTLs and timeouts

	"github.com/joho/godotenv" // optional .env file for local development
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Required values are enforced by must(); the
// rest fall back to defaults suitable for development.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	Session  SessionConfig
	Cookie   CookieConfig
	AMQPURL  string // RabbitMQ URL for the mail queue
	Mail     MailConfig
	Payment  PaymentConfig
	Shutdown time.Duration // graceful shutdown timeout
}

// SessionConfig bounds the refresh-token and password-reset lifecycle.
type SessionConfig struct {
	MaxActive      int           // max refresh tokens per account, 0 = unbounded
	ResetCodeTTL   time.Duration // lifetime of an emailed reset code
	ResetPermitTTL time.Duration // lifetime of the reset permission token
	ResetAttempts  int           // wrong guesses before a reset code is dropped
	RedisPrefix    string        // namespace for blacklist and reset keys
	MigrateOnStart bool          // run schema statements at boot
}

// CookieConfig controls how the refresh token cookie is emitted.
// Path is filled in per account kind when the credential routes are
// mounted.
type CookieConfig struct {
	Name   string
	Domain string
	Path   string
	Secure bool
}

// PaymentConfig configures the stub gateway.
type PaymentConfig struct {
	CheckoutBaseURL string
	DefaultMethod   string
}

// Load reads configuration values from environment variables and returns a
// Config. A .env file in the working directory is loaded first when present.
// Missing required values cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // a missing .env file is not an error

	return Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		Session: SessionConfig{
			MaxActive:      envInt("MAX_ACTIVE_SESSIONS", 0),
			ResetCodeTTL:   envDur("RESET_CODE_TTL", 10*time.Minute),
			ResetPermitTTL: envDur("RESET_PERMISSION_TTL", 5*time.Minute),
			ResetAttempts:  envInt("RESET_CODE_MAX_ATTEMPTS", 5),
			RedisPrefix:    envStr("SESSION_REDIS_PREFIX", "auth"),
			MigrateOnStart: envBool("DB_MIGRATE", true),
		},
		Cookie: CookieConfig{
			Name:   envStr("REFRESH_COOKIE_NAME", "refresh_token"),
			Domain: os.Getenv("REFRESH_COOKIE_DOMAIN"),
			Secure: envBool("REFRESH_COOKIE_SECURE", true),
		},
		AMQPURL: amqpURL(),
		Mail:    LoadMailConfig(),
		Payment: PaymentConfig{
			CheckoutBaseURL: envStr("PAYMENT_CHECKOUT_BASE_URL", "https://pay.example.com/checkout"),
			DefaultMethod:   envStr("PAYMENT_DEFAULT_METHOD", "card"),
		},
		Shutdown: envDur("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// AccessTTL returns the access token lifetime.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL returns the refresh token lifetime.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// amqpURL returns the broker URL, or "" when none is configured, in which
// case reset mail goes straight to SMTP.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return envStr("AMQP_URL", "")
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
