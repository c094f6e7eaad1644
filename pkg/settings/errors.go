package settings

import (
	"errors"
	"fmt"
)

var (
	ErrConfigFault  = errors.New("config fault")
	ErrMissingField = errors.New("missing settings field")
)

// ConfigFaultError is returned when the default settings could not be
// written back after the persisted settings were found unusable.
type ConfigFaultError struct {
	Path string
	Err  error
}

func (e *ConfigFaultError) Error() string {
	if e == nil {
		return ErrConfigFault.Error()
	}
	return fmt.Sprintf("%s: cannot persist default settings to %s: %v", ErrConfigFault, e.Path, e.Err)
}

func (e *ConfigFaultError) Is(target error) bool { return target == ErrConfigFault }

func (e *ConfigFaultError) Unwrap() error { return e.Err }

// MissingFieldError reports a settings record without a required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }
