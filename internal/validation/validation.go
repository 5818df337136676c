// Package validation checks request payloads against field rules and reports
// failures as per-field human-readable messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a request field name to its failure messages.
type Errors struct {
	Fields map[string][]string
}

func (e *Errors) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field.
func (e *Errors) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Has reports whether field already failed.
func (e *Errors) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// Err returns e as an error, or nil if nothing was recorded.
func (e *Errors) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Message is the summary line shown next to the field errors.
func (e *Errors) Message() string {
	first := ""
	total := 0
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if first == "" && len(e.Fields[k]) > 0 {
			first = e.Fields[k][0]
		}
		total += len(e.Fields[k])
	}
	if total <= 1 {
		return first
	}
	return fmt.Sprintf("%s (and %d more error%s)", first, total-1, plural(total-1))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// Common messages shared with store-backed rules.
func Taken(field string) string   { return fmt.Sprintf("The %s has already been taken.", field) }
func Invalid(field string) string { return fmt.Sprintf("The selected %s is invalid.", field) }

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// bytesmax bounds the encoded length; bcrypt rejects passwords over 72 bytes.
	v.RegisterValidation("bytesmax", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return &Validator{validate: v}
}

// Struct validates s using its `validate` tags. It returns *Errors for rule
// failures and a plain error if s cannot be validated at all.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	out := &Errors{}
	for _, fe := range verrs {
		field, msg := describe(fe)
		out.Add(field, msg)
	}
	return out
}

func describe(fe validator.FieldError) (string, string) {
	field := fe.Field()
	human := strings.ReplaceAll(field, "_", " ")

	switch fe.Tag() {
	case "required":
		return field, fmt.Sprintf("The %s field is required.", human)
	case "email":
		return field, fmt.Sprintf("The %s field must be a valid email address.", human)
	case "max":
		return field, fmt.Sprintf("The %s field must not be greater than %s characters.", human, fe.Param())
	case "min":
		return field, fmt.Sprintf("The %s field must be at least %s characters.", human, fe.Param())
	case "bytesmax":
		return field, fmt.Sprintf("The %s field must not be greater than %s bytes.", human, fe.Param())
	case "eqfield":
		// Confirmation fields report against the field they confirm.
		target := strings.TrimSuffix(field, "_confirmation")
		return target, fmt.Sprintf("The %s field confirmation does not match.", strings.ReplaceAll(target, "_", " "))
	default:
		return field, fmt.Sprintf("The %s field is invalid.", human)
	}
}
