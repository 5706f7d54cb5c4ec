package twinschema

import (
	"errors"
	"fmt"
)

// ConfigError reports a declaration mistake: an unsupported option, a
// storage-only key mixed with a validation-only key, conflicting
// column/relationship markers, a disallowed attribute, or a misconfigured
// hierarchy. Configuration errors are raised synchronously at declaration or
// compile time and must be fixed at the declaration site.
type ConfigError struct {
	msg string
}

// Error implements the error interface
func (e *ConfigError) Error() string { return e.msg }

// ConfigErrorf builds a ConfigError with fmt.Sprintf semantics.
func ConfigErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
