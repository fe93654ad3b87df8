package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
)

// RequestValidator plugs go-playground/validator into echo. Failures come
// back as a Validation error whose "details" map json field names to a
// message.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("password", validPassword)
	_ = v.RegisterValidation("genre", validGenre)
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return apperr.Validation("invalid request")
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fieldPath(fe)] = messageFor(fe)
	}
	return apperr.Validation("validation failed").With("details", details)
}

// fieldPath drops the top-level struct name: "registerRequest.email" → "email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if isText(fe) {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("The minimum value is %s", fe.Param())
	case "max":
		if isText(fe) {
			return fmt.Sprintf("Must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("The maximum value is %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Value should be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Value should be less than or equal to %s", fe.Param())
	case "email":
		return "Value must be a valid email address"
	case "url":
		return "Value must be a valid URL"
	case "password":
		return "Password must be 8-100 characters with at least one lowercase letter, one uppercase letter and one number"
	case "genre":
		return "Value must not contain '|'"
	default:
		return "This field is invalid"
	}
}

func isText(fe validator.FieldError) bool {
	k := fe.Kind()
	return k == reflect.String || k == reflect.Slice
}

func validPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if n := len([]rune(s)); n < 8 || n > 100 {
		return false
	}
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// validGenre rejects the separator the store uses to aggregate genre tags.
func validGenre(fl validator.FieldLevel) bool {
	return !strings.Contains(fl.Field().String(), "|")
}
