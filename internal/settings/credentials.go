// Package settings keeps the WooCommerce API credentials: a durable KEY=value
// file plus an immutable in-memory snapshot holding the client built from
// them.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidValue rejects values the line-oriented settings file cannot hold.
var ErrInvalidValue = errors.New("invalid settings value")

// Credentials are stored and served in plaintext. Only logs are masked.
type Credentials struct {
	BaseURL        string `json:"woocommerceUrl" validate:"required"`
	ConsumerKey    string `json:"consumerKey" validate:"required"`
	ConsumerSecret string `json:"consumerSecret" validate:"required"`
}

// Complete reports whether a client can be built from c.
func (c Credentials) Complete() bool {
	return c.BaseURL != "" && c.ConsumerKey != "" && c.ConsumerSecret != ""
}

// Validate checks that every field fits on a single line of the settings file.
func (c Credentials) Validate() error {
	for _, f := range c.fields() {
		if strings.ContainsAny(f.value, "\r\n") {
			return fmt.Errorf("%w: %s must not contain line breaks", ErrInvalidValue, f.key)
		}
	}
	return nil
}

// LogValue keeps the key and secret out of log output.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", c.BaseURL),
		slog.String("consumer_key", Mask(c.ConsumerKey)),
		slog.String("consumer_secret", Mask(c.ConsumerSecret)),
	)
}

// Mask hides all but the last four characters of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

type field struct {
	key   string
	value string
}

func (c Credentials) fields() []field {
	return []field{
		{KeyURL, c.BaseURL},
		{KeyConsumerKey, c.ConsumerKey},
		{KeyConsumerSecret, c.ConsumerSecret},
	}
}
