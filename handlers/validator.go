package handlers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"paymentpanel/utils"
)

// Validator wraps the validator instance
type Validator struct {
	validate *validator.Validate
}

var (
	validate     *Validator
	validateOnce sync.Once
)

// InitValidator initializes the global validator. Only the first call has an effect.
func InitValidator() {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("recordid", validateRecordID)
		validate = &Validator{validate: v}
	})
}

// GetValidator returns the global validator instance
func GetValidator() *Validator {
	InitValidator()
	return validate
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationError formats validation errors into a field-keyed map
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["error"] = "Invalid request format"
		return errs
	}

	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			errs[field] = "This field is required"
		case "recordid":
			errs[field] = "Must be 1-64 letters, digits or . _ : -"
		case "gt":
			errs[field] = fmt.Sprintf("Must be greater than %s", e.Param())
		case "len":
			errs[field] = fmt.Sprintf("Must be exactly %s characters", e.Param())
		case "max":
			errs[field] = fmt.Sprintf("Must be at most %s characters", e.Param())
		case "alpha":
			errs[field] = "Must contain letters only"
		default:
			errs[field] = "Invalid value"
		}
	}

	return errs
}

func validateRecordID(fl validator.FieldLevel) bool {
	return utils.IsValidRecordID(fl.Field().String())
}
