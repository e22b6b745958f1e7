// Package validate runs the same `binding` tag rules gin applies at the
// HTTP edge, for callers that reach the services directly.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"go-pos-books/internal/apperr"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reads `binding` tags and reports fields by
// their JSON names.
func New() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(JSONName)
	return v
}

// JSONName reports a struct field by its JSON key.
func JSONName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// Error turns the first validator failure into an apperr validation error.
func Error(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Field() == "items" && (fe.Tag() == "required" || fe.Tag() == "min") {
			return apperr.Validation("At least one item is required")
		}
		switch fe.Tag() {
		case "required":
			return apperr.Validation("%s is required", fe.Field())
		case "gte", "min":
			return apperr.Validation("%s must be at least %s", fe.Field(), fe.Param())
		case "lte", "max":
			return apperr.Validation("%s must be at most %s", fe.Field(), fe.Param())
		case "oneof":
			return apperr.Validation("%s must be one of: %s", fe.Field(), fe.Param())
		case "datetime":
			return apperr.Validation("%s must be a YYYY-MM-DD date", fe.Field())
		}
		return apperr.Validation("%s is invalid", fe.Field())
	}
	return apperr.Validation("Invalid request: %v", err)
}
