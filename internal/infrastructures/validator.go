package infrastructures

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/nordfleet/fleet-core/internal/app/errors"
)

var (
	// Norwegian registration number, e.g. "AB12345"
	registrationNumberPattern = regexp.MustCompile(`^[A-Z0-9 ]{2,8}$`)
	phoneNumberPattern        = regexp.MustCompile(`^[0-9+ ]{8,15}$`)
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()

	validate.RegisterValidation("regnum", func(fl validator.FieldLevel) bool {
		return registrationNumberPattern.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("phonenum", func(fl validator.FieldLevel) bool {
		return phoneNumberPattern.MatchString(fl.Field().String())
	})

	return &Validator{
		validate: validate,
	}
}

func (v *Validator) Validate(i interface{}) error {
	if i == nil {
		return errors.NewBadRequestError("Invalid request body")
	}

	err := v.validate.Struct(i)
	if err != nil {
		return errors.NewBadRequestError(err.Error())
	}
	return nil
}
