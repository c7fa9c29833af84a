// Package validation turns go-playground/validator rule tables into
// field-level violation lists.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Violation describes a single failed rule on a request field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Kind    string `json:"type"`
}

// Violations is the full set of failures for one request. It is returned as a
// value, never panicked or thrown.
type Violations []Violation

func (v Violations) Error() string {
	parts := make([]string, 0, len(v))
	for _, item := range v {
		parts = append(parts, item.Field+": "+item.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a violation.
func (v *Violations) Add(field, kind, message string) {
	*v = append(*v, Violation{Field: field, Message: message, Kind: kind})
}

// Merge appends all violations of other, prefixing nothing.
func (v *Violations) Merge(other Violations) {
	*v = append(*v, other...)
}

// Empty reports whether no rule failed.
func (v Violations) Empty() bool { return len(v) == 0 }

// Messages overrides the generated message for a "field.tag" pair.
type Messages map[string]string

// Validator wraps a shared validator.Validate with the API's custom rules.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator. Field names in violations use the json tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("password", validatePasswordStrength)
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Validator{validate: v}
}

// Struct validates s against its `validate` tags and returns every failure.
func (v *Validator) Struct(s any, messages Messages) Violations {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Violations{{Field: "", Message: err.Error(), Kind: "invalid"}}
	}
	out := make(Violations, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = defaultMessage(fe)
		}
		out = append(out, Violation{Field: field, Message: msg, Kind: fe.Tag()})
	}
	return out
}

// Var validates a single value against a tag expression.
func (v *Validator) Var(field string, value any, tag string, messages Messages) Violations {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Violations{{Field: field, Message: err.Error(), Kind: "invalid"}}
	}
	out := make(Violations, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = describe(label(field), fe.Tag(), fe.Param(), fe.Kind())
		}
		out = append(out, Violation{Field: field, Message: msg, Kind: fe.Tag()})
	}
	return out
}

// validatePasswordStrength requires a lowercase letter, an uppercase letter and a digit.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

func defaultMessage(fe validator.FieldError) string {
	return describe(label(fe.Field()), fe.Tag(), fe.Param(), fe.Kind())
}

func describe(name, tag, param string, kind reflect.Kind) string {
	isString := kind == reflect.String
	switch tag {
	case "required", "notblank":
		return name + " is required"
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", name, param)
		}
		return fmt.Sprintf("%s must be at least %s", name, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must not exceed %s characters", name, param)
		}
		return fmt.Sprintf("%s must not exceed %s", name, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, param)
	case "lte":
		return fmt.Sprintf("%s must not exceed %s", name, param)
	case "email":
		return "Invalid email format"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.Join(strings.Fields(param), ", "))
	case "password":
		return "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

func label(field string) string {
	if field == "" {
		return "Value"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
