// Package validation wraps go-playground/validator so domain parameter
// structs can be checked declaratively and failures come back as
// apperr validation errors with client-facing messages.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"bankapi/internal/shared/apperr"
)

// MoneyPlaces is the number of decimal places a monetary amount may carry.
const MoneyPlaces = 2

// IsCents reports whether d needs no more than MoneyPlaces decimal places.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}

// Messages maps "<json field>.<tag>" to the message reported for that
// failure, e.g. "balance.gte" -> "Balance cannot be negative".
type Messages map[string]string

type Validator struct {
	validate *validator.Validate
}

// New returns a validator that names fields after their json tag and
// compares decimal.Decimal fields numerically.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Numeric tags see a float64, which rounds values like -1e-400 to -0.
	// Sign and scale of money are checked on the decimal with IsCents and
	// IsNegative by the callers.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Validator{validate: v}
}

// Struct validates s and returns the first failure as an apperr validation
// error. Failures without an entry in msgs get a generic message.
func (v *Validator) Struct(s any, msgs Messages) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("invalid input")
	}

	fe := fieldErrs[0]
	if msg, ok := msgs[fe.Field()+"."+fe.Tag()]; ok {
		return apperr.Validation("%s", msg)
	}
	return apperr.Validation("%s failed on %s", fe.Field(), fe.Tag())
}
