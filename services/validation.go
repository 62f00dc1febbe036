package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Dosada05/uniplay/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enums := map[string]func(string) bool{
		"extras_type":   func(s string) bool { return models.ExtrasType(s).IsValid() },
		"wicket_type":   func(s string) bool { return models.WicketType(s).IsValid() },
		"match_status":  func(s string) bool { return models.MatchStatus(s).IsValid() },
		"toss_decision": func(s string) bool {
			return s == string(models.TossDecisionBat) || s == string(models.TossDecisionBowl)
		},
		"match_type": func(s string) bool { return models.MatchType(s).Overs() > 0 },
	}
	for tag, ok := range enums {
		ok := ok
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return ok(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register %s validator: %v", tag, err))
		}
	}
	return v
}

// validateInput runs the struct tags of a command input and converts the
// failures into a ValidationError keyed by JSON field name.
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields[fe.Field()] = validationMessage(fe)
	}
	return verr
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be provided"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "extras_type", "wicket_type", "match_status", "toss_decision", "match_type":
		return fmt.Sprintf("%q is not a valid value", fe.Value())
	case "dive", "unique":
		return "must not contain duplicates"
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}
