package httpx

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("isbn_10", isbnValidator(v, "isbn10"))
	_ = v.RegisterValidation("isbn_13", isbnValidator(v, "isbn13"))
	return v
}

var isbnSeparators = strings.NewReplacer("-", "", " ", "")

// isbnValidator accepts hyphenated or spaced ISBNs and defers the format and
// checksum to the built-in tag.
func isbnValidator(v *validator.Validate, tag string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := strings.ToUpper(isbnSeparators.Replace(fl.Field().String()))
		return v.Var(s, tag) == nil
	}
}

// ValidateStruct validates s and returns one detail per failing field, or nil.
func ValidateStruct(s any) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ErrorDetail{{Field: "", Message: err.Error()}}
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "isbn_10":
			message = fmt.Sprintf("%s must be a valid ISBN-10", field)
		case "isbn_13":
			message = fmt.Sprintf("%s must be a valid ISBN-13", field)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}
		details = append(details, ErrorDetail{Field: field, Message: message})
	}
	return details
}

// ValidateEach validates every element of items, prefixing field names with
// the element index.
func ValidateEach[T any](items []T) []ErrorDetail {
	var details []ErrorDetail
	for i := range items {
		for _, d := range ValidateStruct(items[i]) {
			d.Field = fmt.Sprintf("[%d].%s", i, d.Field)
			details = append(details, d)
		}
	}
	return details
}
