// Package validation registers the request binding rules shared by handlers.
package validation

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MoneyTag validates a non-negative amount with at most two decimal places,
// no greater than MaxAmount.
const MoneyTag = "money"

// MaxAmount is the largest single charge the processor accepts (99999999 cents).
var MaxAmount = decimal.New(99999999, -2)

var once sync.Once

// Register installs the custom rules on gin's validator. Safe to call more than once.
func Register() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Install(v)
		}
	})
}

// Install adds the custom rules to v.
func Install(v *validator.Validate) {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	_ = v.RegisterValidation(MoneyTag, validateMoney)
}

// decimalValue lets tags apply to decimal fields, which the validator would
// otherwise treat as opaque structs.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return IsMoney(d)
}

// IsMoney reports whether d is a valid amount. Valid amounts convert to
// cents without loss.
func IsMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2)) && d.LessThanOrEqual(MaxAmount)
}
