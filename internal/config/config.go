package config

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/settings"
)

type Config struct {
	Port         string
	DBPath       string
	SettingsPath string
	CSRFKey      []byte
	SessionKey   []byte
	APITokenKey  []byte // empty disables bearer tokens
	CookieDomain string
	CookieSecure bool

	// UpstreamTimeout bounds every call to the WooCommerce API.
	UpstreamTimeout time.Duration
	SupplierDelay   time.Duration

	// SeedCredentials come from the environment and win over the settings
	// file when complete.
	SeedCredentials settings.Credentials
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8585"),
		DBPath:          getEnv("DB_PATH", "./woomanager.db"),
		SettingsPath:    getEnv("SETTINGS_PATH", "./.env"),
		CookieDomain:    getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:    getEnv("COOKIE_SECURE", "false") == "true",
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		SupplierDelay:   getDuration("SUPPLIER_DELAY", time.Second),
		SeedCredentials: settings.Credentials{
			BaseURL:        getCredentialEnv(settings.KeyURL),
			ConsumerKey:    getCredentialEnv(settings.KeyConsumerKey),
			ConsumerSecret: getCredentialEnv(settings.KeyConsumerSecret),
		},
	}

	cfg.CSRFKey = loadKey("CSRF_KEY", "Forms will be rejected after a restart.")
	cfg.SessionKey = loadKey("SESSION_KEY", "Sessions will be invalid on restart.")

	if v := os.Getenv("API_TOKEN_KEY"); v != "" {
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil || len(decoded) < 32 {
			slog.Warn("API_TOKEN_KEY is invalid or too short (min 32 bytes). API bearer tokens are disabled.")
		} else {
			cfg.APITokenKey = decoded
		}
	}

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", os.Getenv("PORT"))
		cfg.Port = "8585"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		slog.Warn("Invalid duration, using default", "key", key, "value", v, "default", defaultValue)
		return defaultValue
	}
	return d
}

// getCredentialEnv also accepts the VITE_ names older deployments exported.
func getCredentialEnv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return os.Getenv("VITE_" + key)
}

// loadKey decodes a base64 secret of at least 32 bytes, or generates a
// random one for development.
func loadKey(name, consequence string) []byte {
	v := os.Getenv(name)
	if v == "" {
		slog.Warn(name + " environment variable not set. Generating a random key for development. " + consequence + " PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(v)
	if err != nil || len(decoded) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes recommended). Generating a random key for development. PLEASE SET A SECURE " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	return decoded
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform is broken; refuse to run
		// with a predictable key.
		slog.Error("Failed to read random bytes", "error", err)
		panic(err)
	}
	return b
}
