package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// ValidateStruct runs the struct tags of v.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// FormatValidationErrors converts validator.ValidationErrors into a slice of ValidationError
func FormatValidationErrors(err error) []ValidationError {
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]ValidationError, len(ve))
	for i, fe := range ve {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		out[i] = ValidationError{
			Field: field,
			Tag:   fe.Tag(),
			Value: fmt.Sprintf("%v", fe.Value()),
		}
		switch fe.Tag() {
		case "required":
			out[i].Message = fmt.Sprintf("%s is required", field)
		case "max":
			out[i].Message = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "min":
			out[i].Message = fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		case "oneof":
			out[i].Message = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		default:
			out[i].Message = fmt.Sprintf("validation failed on field '%s' for tag '%s'", field, fe.Tag())
		}
	}
	return out
}

// ValidationMessage joins the formatted messages into one line.
func ValidationMessage(err error) string {
	fe := FormatValidationErrors(err)
	if len(fe) == 0 {
		return err.Error()
	}
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}
