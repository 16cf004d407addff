package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates v against its `validate` tags. Field names in the
// returned errors come from the `form` tag.
func Struct(v any) ValidationErrors {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	return FromValidator(err)
}

// FromValidator converts validator errors to ValidationErrors.
func FromValidator(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewError(err.Error())
	}

	var out ValidationErrors
	for _, e := range verrs {
		var message string
		switch e.Tag() {
		case "required":
			message = "is required"
		case "min":
			message = fmt.Sprintf("must be at least %s characters", e.Param())
		case "max":
			message = fmt.Sprintf("must be at most %s characters", e.Param())
		case "oneof":
			message = fmt.Sprintf("must be one of %s", e.Param())
		default:
			message = "is invalid"
		}
		out.AddError(ValidationError{
			Field:   e.Field(),
			Rule:    e.Tag(),
			Message: message,
			Params:  map[string]any{"param": e.Param()},
		})
	}
	return out
}
