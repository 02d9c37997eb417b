package models

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// Validator returns the shared validator with the username rule registered.
func Validator() *validator.Validate {
	return validate
}

// ValidUsername reports whether name is usable as a key segment and identity.
func ValidUsername(name string) bool {
	return validate.Var(name, "required,username") == nil
}

// ValidateStruct runs struct tag validation.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}
