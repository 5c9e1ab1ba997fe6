// Package validation checks request payloads before they reach the course API.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error is a validation failure with a message suitable for the user
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf creates a validation error with a formatted message
func Errorf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is or wraps a validation error
func IsValidationError(err error) bool {
	var vErr *Error
	return errors.As(err, &vErr)
}

// Validator wraps the go-playground validator. Struct fields may carry a
// `message` tag that replaces the generated message when the field fails.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report JSON names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("trimmin", func(fl validator.FieldLevel) bool {
		var n int
		if _, err := fmt.Sscanf(fl.Param(), "%d", &n); err != nil {
			return false
		}
		return len(strings.TrimSpace(fl.Field().String())) >= n
	})

	return &Validator{validate: v}
}

// Struct validates s and returns the first failure as an *Error
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	fe := fieldErrs[0]
	return &Error{Field: fe.Field(), Message: messageFor(s, fe)}
}

func messageFor(s any, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		if field, ok := t.FieldByName(fe.StructField()); ok {
			if msg := field.Tag.Get("message"); msg != "" {
				return msg
			}
		}
	}

	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "trimmin":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "email":
		return "Invalid email format"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
