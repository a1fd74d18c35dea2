// Package forms holds the editable drafts behind every create and edit
// screen. Drafts validate locally and build the write payloads; nothing here
// touches the network.
package forms

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)

var indexPattern = regexp.MustCompile(`\[\d+\]`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}

// Violations maps a form field to the message shown next to it. Item fields
// are addressed as "variants[2].price".
type Violations map[string]string

func (v Violations) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return strings.Join(parts, "; ")
}

func (v Violations) Add(field, message string) {
	if _, ok := v[field]; !ok {
		v[field] = message
	}
}

// Err returns v as an error, or nil when nothing was violated.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// AsViolations extracts the field messages from err.
func AsViolations(err error) (Violations, bool) {
	var v Violations
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// check runs the struct rules on form. messages is keyed by field path with
// indexes elided and the failed tag, e.g. "variants[].price.gt".
func check(form any, messages map[string]string) Violations {
	out := Violations{}
	err := validate.Struct(form)
	if err == nil {
		return out
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out.Add("form", "Dữ liệu không hợp lệ")
		return out
	}
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		pattern := indexPattern.ReplaceAllString(field, "[]")
		msg, ok := messages[pattern+"."+fe.Tag()]
		if !ok {
			msg = "Giá trị không hợp lệ"
		}
		out.Add(field, msg)
	}
	return out
}
