package truelayer

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return slices.Contains(currencies, Currency(fl.Field().String()))
	}); err != nil {
		panic(err)
	}

	if err := v.RegisterValidation("country", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return slices.Contains(countryCodes, CountryCode(fl.Field().String()))
	}); err != nil {
		panic(err)
	}

	return v
}

// validateStruct runs the struct rules of v and reports the first failure under prefix.
func validateStruct(prefix string, v any) error {
	if err := validate.Struct(v); err != nil {
		return prefixPath(prefix, normalizeValidationError(err))
	}
	return nil
}

type fieldError struct {
	path    string
	message string
}

func (e *fieldError) Error() string {
	return e.path + " " + e.message
}

func prefixPath(prefix string, err error) error {
	var fe *fieldError
	if prefix == "" || !errors.As(err, &fe) {
		return err
	}
	return &fieldError{path: prefix + "." + fe.path, message: fe.message}
}

func requiredField(path string) error {
	return &fieldError{path: path, message: "is required"}
}

func normalizeValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	first := validationErrs[0]
	return &fieldError{path: jsonPath(first), message: validationMessage(first)}
}

func jsonPath(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.Index(path, "."); idx >= 0 {
		path = path[idx+1:]
	}
	if path == "" {
		return fe.Field()
	}
	return path
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return fmt.Sprintf("must have at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("cannot exceed %s characters", fe.Param())
	case "numeric":
		return "must contain digits only"
	case "alphanum":
		return "must contain letters and digits only"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be an E.164 phone number"
	case "url":
		return "must be an absolute URL"
	case "currency":
		return "must be a supported ISO-4217 currency code"
	case "country":
		return "must be a supported ISO-3166 alpha-2 country code"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
