package fitting

import (
	"errors"
	"fmt"
)

// Domain errors for objective evaluation.
var (
	// ErrConfig classifies every construction-time validation failure.
	ErrConfig = errors.New("fitting: invalid configuration")

	// ErrDimensionMismatch indicates terms whose size disagrees with the
	// number of fit parameters.
	ErrDimensionMismatch = errors.New("fitting: dimension mismatch between terms and parameters")

	// ErrUnknownOrder indicates a derivative order outside X, G, H.
	ErrUnknownOrder = errors.New("fitting: unknown derivative order")

	// ErrInvalidTerms indicates a NaN or Inf in a target's result.
	ErrInvalidTerms = errors.New("fitting: invalid terms (NaN or Inf detected)")
)

// ConfigError wraps a validation failure with the offending setting.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfig, e.Err}
}

// NewConfigError builds a ConfigError from a formatted reason.
func NewConfigError(field, value, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Value: value, Err: fmt.Errorf(format, args...)}
}

// IsConfig reports whether err is a configuration failure.
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}
