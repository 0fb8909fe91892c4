package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/aldoetobex/pi-case-backend/internal/documents"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
)

var (
	v *validator.Validate

	// Bar number: 3 to 40 chars, alphanumerics plus space, dash, slash.
	reBarNum = regexp.MustCompile(`^[A-Za-z0-9 /-]{3,40}$`)
)

func init() {
	v = validator.New()

	// Use JSON tag as the field name in error output
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Custom: bar number
	_ = v.RegisterValidation("barnum", func(fl validator.FieldLevel) bool {
		val := strings.TrimSpace(fl.Field().String())
		if val == "" { // let omitempty handle empty
			return true
		}
		return reBarNum.MatchString(val)
	})

	// Custom: known case stage
	_ = v.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
		return models.StatusesFor(models.Stage(fl.Field().String())) != nil
	})

	// Custom: registered document type key
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		_, ok := documents.Lookup(fl.Field().String())
		return ok
	})

	// Money fields validate as numbers (gte/lte work on them)
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		switch d := f.Interface().(type) {
		case decimal.Decimal:
			return d.InexactFloat64()
		case decimal.NullDecimal:
			if !d.Valid {
				return nil
			}
			return d.Decimal.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})
}

// Validate returns map[field][]messages (Laravel-like). A nil map means s
// is valid.
func Validate(s any) (map[string][]string, error) {
	err := v.Struct(s)
	if err == nil {
		return nil, nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, err
	}

	out := make(map[string][]string)
	for _, e := range ve {
		field := e.Field() // json name, see RegisterTagNameFunc
		out[field] = append(out[field], message(e))
	}
	return out, nil
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "required_if":
		return "This field is required for this " + strings.ToLower(strings.Fields(e.Param())[0])
	case "email":
		return "Invalid email format"
	case "oneof":
		return "Value is not allowed"
	case "uuid", "uuid4":
		return "Invalid UUID format"
	case "min", "gte":
		return bound(e, "at least")
	case "max", "lte":
		return bound(e, "at most")
	case "barnum":
		return "Invalid bar number format"
	case "stage":
		return "Unknown case stage"
	case "doctype":
		return "Unknown document type"
	default:
		return e.Error()
	}
}

// bound words a size or range limit for strings, lists and numbers.
func bound(e validator.FieldError, rel string) string {
	switch e.Kind() {
	case reflect.String:
		return fmt.Sprintf("Must be %s %s characters", rel, e.Param())
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("Must have %s %s items", rel, e.Param())
	default:
		return fmt.Sprintf("Must be %s %s", rel, e.Param())
	}
}
