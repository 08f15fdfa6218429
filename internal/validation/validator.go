package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Register adds the custom rules and reports fields by their json names
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)
	return v.RegisterValidation("notblank", notBlank)
}

// RegisterWithGin installs the rules on gin's binding engine. It must run
// before the router binds its first request.
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return Register(v)
}

// notBlank rejects strings that are empty after trimming whitespace
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Errors flattens a binding error into per-field messages. Errors that do
// not come from the validator (malformed JSON, wrong types) are reported
// against the request body.
func Errors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Field: "body", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, ValidationError{
			Field:   fieldPath(e),
			Message: message(e),
			Value:   valueOf(e),
		})
	}
	return out
}

// Message joins the errors into one line for {"error": ...} bodies
func Message(errs []ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}

// fieldPath drops the top-level struct name from the namespace so nested
// fields read like "items[0].item".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func message(e validator.FieldError) string {
	field := fieldPath(e)
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(e.Param(), " ", ", "))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

func valueOf(e validator.FieldError) interface{} {
	switch v := e.Value().(type) {
	case string:
		if v == "" {
			return nil
		}
		return v
	case nil:
		return nil
	default:
		return v
	}
}
