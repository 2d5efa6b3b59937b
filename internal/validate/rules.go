// Package validate checks action inputs before they touch any store or the
// network. Ticket and friend inputs use ordered rule tables so the first
// failing field is reported; credential structs use go-playground/validator
// struct tags.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/five82/ticketbook/internal/result"
)

// Rule checks one field of T.
type Rule[T any] struct {
	Field string
	Check func(T) *result.AppError
}

// Fields runs rules in order and returns the first failure, or nil.
func Fields[T any](value T, rules []Rule[T]) *result.AppError {
	for _, r := range rules {
		if err := r.Check(value); err != nil {
			if err.Field == "" {
				err.Field = r.Field
			}
			return err
		}
	}
	return nil
}

// Required fails when s is blank.
func Required(field, s string) *result.AppError {
	if strings.TrimSpace(s) == "" {
		return result.Validation(fmt.Sprintf("%s is required", field), field)
	}
	return nil
}

// MaxLength fails when s has more than limit characters.
func MaxLength(field, s string, limit int) *result.AppError {
	if utf8.RuneCountInString(s) > limit {
		return result.Validation(fmt.Sprintf("%s must be at most %d characters", field, limit), field)
	}
	return nil
}
