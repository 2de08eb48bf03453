package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/baechuer/taskflow/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so error meta matches the request body.
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
	return v
}

// Validate checks req against its struct tags and returns the first failure
// as a domain validation error.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return domain.ErrInternal(err)
	}
	return fieldError(ves[0])
}

func fieldError(fe validator.FieldError) error {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return domain.ErrMissingField(field)
	case "max":
		return domain.ErrInvalidField(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	case "oneof":
		return domain.ErrInvalidField(field, "must be one of "+strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return domain.ErrInvalidField(field, "is invalid")
	}
}
