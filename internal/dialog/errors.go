package dialog

import (
	"errors"
	"fmt"
)

var (
	// ErrNilSpec is returned when a constructor receives no spec.
	ErrNilSpec = errors.New("dialog: nil spec")
	// ErrInvalidSpec is wrapped by every ConfigError.
	ErrInvalidSpec = errors.New("dialog: invalid spec")
)

// ConfigError names the field a constructor needed but did not get.
type ConfigError struct {
	Constructor string
	Field       string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dialog: %s requires %s", e.Constructor, e.Field)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidSpec
}
