// Package validation checks UI payloads with go-playground/validator before
// any remote call is made.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/isbn"
)

// MaxContentLength is the largest review body accepted, in runes.
const MaxContentLength = 9999

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the isbn13 tag registered.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("isbn13", func(fl validator.FieldLevel) bool {
		return isbn.Validate(fl.Field().String()) == nil
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns an error wrapping errs.ErrInvalidInput.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// ContentLength counts review content the way the edit form does.
func ContentLength(s string) int { return utf8.RuneCountInString(s) }

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, e.Field()+" "+friendlyMessage(e))
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", errs.ErrInvalidInput, strings.Join(msgs, "; "))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "isbn13":
		return "must be a valid ISBN-13"
	default:
		return "is invalid"
	}
}
