package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind enumerates why a form field was rejected.
type ErrorKind string

const (
	ErrRequired      ErrorKind = "required"
	ErrTooLong       ErrorKind = "too_long"
	ErrNotPositive   ErrorKind = "not_positive"
	ErrNegative      ErrorKind = "negative"
	ErrOutOfRange    ErrorKind = "out_of_range"
	ErrInvalidChoice ErrorKind = "invalid_choice"
	ErrInvalidRange  ErrorKind = "invalid_range"
	ErrInvalidFormat ErrorKind = "invalid_format"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

// FieldError is one rejected field of a form input.
type FieldError struct {
	Field string
	Kind  ErrorKind
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Kind)
}

// ValidationErrors collects every field problem of one input.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether field was rejected with kind.
func (v ValidationErrors) Has(field string, kind ErrorKind) bool {
	for _, fe := range v {
		if fe.Field == field && fe.Kind == kind {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var v ValidationErrors
	return errors.As(err, &v)
}

// validator accumulates field errors while an input is checked.
type validator struct {
	errs ValidationErrors
}

func (v *validator) add(field string, kind ErrorKind) {
	v.errs = append(v.errs, FieldError{Field: field, Kind: kind})
}

func (v *validator) name(field, value string, required bool) {
	value = strings.TrimSpace(value)
	switch {
	case value == "" && required:
		v.add(field, ErrRequired)
	case len(value) > MaxNameLength:
		v.add(field, ErrTooLong)
	}
}

func (v *validator) text(field, value string, max int) {
	if len(value) > max {
		v.add(field, ErrTooLong)
	}
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, ErrRequired)
	}
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}
