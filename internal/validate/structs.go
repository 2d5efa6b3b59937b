package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/five82/ticketbook/internal/result"
)

var (
	instance     *validator.Validate
	instanceOnce sync.Once

	handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// Validator returns the shared validator with the custom "handle" tag
// registered. Field names in errors come from json tags.
func Validator() *validator.Validate {
	instanceOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
			return handlePattern.MatchString(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// Struct validates s and returns the first field failure as a VALIDATION
// AppError with Field set, or nil.
func Struct(s any) *result.AppError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return result.Validation(err.Error(), "")
	}
	fe := fieldErrs[0]
	appErr := result.Validation(message(fe), fe.Field())
	appErr.Details = map[string]any{"tag": fe.Tag()}
	return appErr
}

func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "handle":
		return fmt.Sprintf("%s may only contain letters, digits and underscores", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
