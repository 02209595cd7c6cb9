// Package validator wraps go-playground/validator for request body
// validation.
package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator validates request structs against their validate tags.
type Validator struct {
	cli *validator.Validate
}

// A FieldError reports a single field that failed validation. Field is
// the JSON name of the field, Rule the validation tag that failed.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// New returns a Validator that reports fields by their JSON names.
func New() *Validator {
	cli := validator.New(validator.WithRequiredStructEnabled())
	cli.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{cli: cli}
}

// Struct validates s and returns one FieldError per failing field, nil
// when s is valid.
func (v *Validator) Struct(s any) []FieldError {
	err := v.cli.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Rule: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
