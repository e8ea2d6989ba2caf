package stripe

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// fieldCauses maps a validated field to its sentinel error.
var fieldCauses = map[string]error{
	"amount":    domainErrors.ErrInvalidAmount,
	"exp_month": domainErrors.ErrInvalidExpMonth,
	"number":    domainErrors.ErrMissingCardNumber,
	"charge":    domainErrors.ErrMissingChargeID,
}

// validateStruct converts validator failures into ValidationErrors, one per
// field, in struct order.
func validateStruct(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, domainErrors.NewValidationError(fe.Field(), describe(fe), fieldCauses[fe.Field()]))
	}
	if len(out) == 1 {
		return out[0]
	}
	return errors.Join(out...)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
}
