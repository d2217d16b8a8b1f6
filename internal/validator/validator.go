// Package validator provides struct validation using go-playground/validator.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// routeSegment matches one or more URL path segments such as "wp-json" or
// "wp/v2": letters, digits, dash, underscore and dot, separated by slashes.
var routeSegment = regexp.MustCompile(`^/?[A-Za-z0-9._-]+(/[A-Za-z0-9._-]+)*/?$`)

// argName matches a query parameter name such as "post_type".
var argName = regexp.MustCompile(`^[a-z0-9_]+$`)

// Validator wraps the go-playground validator with custom configuration.
type Validator struct {
	v *validator.Validate
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Message)
	}
	return sb.String()
}

// New creates a new Validator instance with custom tag name and validations.
func New() *Validator {
	v := validator.New()

	// Use config key names (or JSON names) for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"mapstructure", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	// route_segment: a value usable as a fixed part of the query route path
	_ = v.RegisterValidation("route_segment", func(fl validator.FieldLevel) bool {
		return routeSegment.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("arg_name", func(fl validator.FieldLevel) bool {
		return argName.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate validates the given struct and returns ValidationErrors if invalid.
func (v *Validator) Validate(i interface{}) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var errs ValidationErrors
	for _, e := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fieldPath(e),
			Tag:     e.Tag(),
			Value:   fmt.Sprintf("%v", e.Value()),
			Message: formatErrorMessage(e),
		})
	}

	return errs
}

// fieldPath returns the dotted key of the field without the root struct name.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// formatErrorMessage generates a human-readable error message.
func formatErrorMessage(e validator.FieldError) string {
	field := fieldPath(e)

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be an absolute URL", field)
	case "route_segment":
		return fmt.Sprintf("%s must be a URL path segment, got %q", field, e.Value())
	case "arg_name":
		return fmt.Sprintf("%s must be a lowercase parameter name, got %q", field, e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}
