package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aihaudit/aih/internal/platform/apperr"
)

// Validator adapts go-playground/validator to echo's Validator interface.
// Field names in messages come from the json tag.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate checks i and returns an *apperr.ValidationError listing every
// failed rule.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	problems := make([]string, 0, len(ves))
	for _, fe := range ves {
		problems = append(problems, fieldMessage(fe))
	}
	return apperr.NewValidation(problems...)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without":
		return field + " é obrigatório"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s deve ter pelo menos %s caracteres", field, fe.Param())
		}
		return fmt.Sprintf("%s deve ser no mínimo %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s deve ter no máximo %s caracteres", field, fe.Param())
		}
		return fmt.Sprintf("%s deve ser no máximo %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s deve ser maior que %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s deve ser maior ou igual a %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s deve ser um de: %s", field, fe.Param())
	default:
		return field + " inválido"
	}
}
