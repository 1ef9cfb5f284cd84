package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields by their configuration names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// Validate checks the settings against their declared constraints.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: settings: %w", ErrInvalidConfig, formatValidationError(err))
	}
	return nil
}

// Validate checks one segment record in isolation. Cross-record rules
// (unique indices, a well-formed tree) are enforced during assembly.
func (s *SegmentSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: segment %q: %w", ErrInvalidConfig, s.Name, formatValidationError(err))
	}
	return nil
}

// Validate checks the settings and every segment record.
func (m *Model) Validate() error {
	if err := m.Settings.Validate(); err != nil {
		return err
	}
	if len(m.Segments) == 0 {
		return fmt.Errorf("%w: no segments defined", ErrInvalidConfig)
	}
	for i, seg := range m.Segments {
		if seg == nil {
			return fmt.Errorf("%w: segment record %d is empty", ErrInvalidConfig, i)
		}
		if err := seg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		// Drop the struct type name, keep the configuration path.
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "required_if":
			return fmt.Errorf("%s: field is required when %s", field, strings.Replace(param, " ", " is ", 1))
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "gtfield":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "ne":
			return fmt.Errorf("%s: must not be %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %v", field, param, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
