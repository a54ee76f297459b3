package institute

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"tutoring/internal/model"
)

const phoneTag = "phone"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	RegisterValidations(v)
	return v
}

// RegisterValidations adds the custom tags used by account inputs to v.
// The phone tag accepts an empty value, which clears the number.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation(phoneTag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || model.ValidPhone(s)
	})
}

// keyed by Go field name so request structs share them
var fieldMessages = map[string]string{
	"FullName":  "full name must be at least 2 characters",
	"Email":     "a valid email is required",
	"Password":  "password must be at least 6 characters",
	"StudentID": "student id must be at least 2 characters",
	"ClassID":   "class must be at least 3 characters",
	"Phone":     "enter a valid phone number (ex: 07XXXXXXXX)",
}

// ValidationMessage describes the first failing field of a validator error,
// or returns fallback for anything else.
func ValidationMessage(err error, fallback string) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		if msg, ok := fieldMessages[ve[0].StructField()]; ok {
			return msg
		}
	}
	return fallback
}

func checkInput(v any) error {
	if err := validate.Struct(v); err != nil {
		return invalid(ValidationMessage(err, "invalid input"))
	}
	return nil
}
