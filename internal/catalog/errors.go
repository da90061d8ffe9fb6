package catalog

import (
	"errors"
	"fmt"
)

// ErrConfigurationMissing is returned when one or more WooCommerce credential
// fields are empty and no client can be built.
var ErrConfigurationMissing = errors.New("woocommerce credentials are not configured")

// ValidationError rejects malformed search or product input before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ExternalServiceError is a non-success answer from the external catalog or a
// failure to reach it. StatusCode is 0 when no response was received.
type ExternalServiceError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode == 0 {
		return "catalog request failed: " + e.Message
	}
	return fmt.Sprintf("catalog request failed (%d): %s", e.StatusCode, e.Message)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
