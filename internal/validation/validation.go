// Package validation checks destination URLs and short codes.
//
// The rules are registered as validator tags so that HTTP request structs
// and the use case share a single definition:
//
//	absurl    - absolute URL with a scheme and a host
//	shortcode - 3 to 10 ASCII letters or digits
package validation

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	TagAbsURL    = "absurl"
	TagShortCode = "shortcode"
)

// Validator wraps a configured validator.Validate.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the absurl and shortcode tags registered and
// field names taken from json struct tags.
func New() *Validator {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for an empty tag or a nil func.
	_ = validate.RegisterValidation(TagAbsURL, isAbsoluteURL)
	validate.RegisterAlias(TagShortCode, "alphanum,min=3,max=10")

	return &Validator{validate: validate}
}

// ValidURL reports whether candidate is an absolute URL with a scheme and a host.
func (v *Validator) ValidURL(candidate string) bool {
	return v.validate.Var(candidate, "required,"+TagAbsURL) == nil
}

// ValidShortCode reports whether candidate is acceptable as a custom short code.
// The empty string is valid and means the code should be generated.
func (v *Validator) ValidShortCode(candidate string) bool {
	return v.validate.Var(candidate, "omitempty,"+TagShortCode) == nil
}

// Struct validates a struct using its validate tags.
func (v *Validator) Struct(s any) error {
	return v.validate.Struct(s)
}

func isAbsoluteURL(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}

	u, err := url.Parse(field.String())
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}
