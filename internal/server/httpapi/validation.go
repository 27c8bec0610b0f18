package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator and reports failures as
// InvalidParameter errors.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// use JSON names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Validate checks s and returns nil or a *common.Error listing every
// offending field.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return common.ErrInvalidParameter.WithCause(err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, fieldPath(e)+" "+friendlyMessage(e))
	}
	slices.Sort(msgs)

	return common.ErrInvalidParameter.WithMessage("validation failed: " + strings.Join(msgs, "; "))
}

// fieldPath drops the root struct name: "BookIn.tags[0].name" -> "tags[0].name".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "gte":
		return "must be greater than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
