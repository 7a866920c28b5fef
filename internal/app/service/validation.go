package service

import (
	"errors"
	"strings"

	"trackmeet/internal/common"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest checks struct tags and reports the first failure as a client error.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return common.Errorf("invalid request: %w", common.ErrBadRequest)
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return common.ErrMissingFields
	case "email":
		return common.NewError(common.ErrValidation, "Invalid email")
	case "min":
		if field == "password" {
			return common.NewError(common.ErrValidation, "Password too short")
		}
		return common.Validationf("%s must be at least %s", field, fe.Param())
	case "gt":
		return common.Validationf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return common.Validationf("%s must be one of: %s", field, fe.Param())
	default:
		return common.Validationf("%s is invalid", field)
	}
}

func validatePassword(password string) error {
	if err := validate.Var(password, "min=6"); err != nil {
		return common.NewError(common.ErrValidation, "Password too short")
	}
	return nil
}
