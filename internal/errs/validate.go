package errs

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("field"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return v
}

// Struct validates input struct tags. A failed "required" tag becomes
// a RequiredFieldMissing error; any other failed tag is a validation failure.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return Validation("%v", err)
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) || len(valErrs) == 0 {
		return Validation("%v", err)
	}

	for _, fe := range valErrs {
		if fe.Tag() == "required" {
			return MissingField(fe.Field())
		}
	}
	fe := valErrs[0]
	return Validation("%s fails %s %s", fe.Field(), fe.Tag(), fe.Param())
}
