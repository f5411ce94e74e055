package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField     = errors.New("required field is missing")
	ErrUnknownDimension = errors.New("dimension is not offered")
	ErrUnsupportedTier  = errors.New("tier is not supported")
	ErrOutOfRange       = errors.New("value is out of range")
	ErrNotFinite        = errors.New("value is not a finite number")
	ErrUnknownKey       = errors.New("unknown key")
	ErrMalformed        = errors.New("malformed rule source")
)

// ConfigError reports a rule source that is missing, unreadable or fails schema validation.
type ConfigError struct {
	Source string
	Field  string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("pricing config %s: field %s: %v", e.Source, e.Field, e.Err)
	}
	return fmt.Sprintf("pricing config %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError reports an order configuration that cannot be priced.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(field string, err error, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
