package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"locallibrary/pkg/workflow"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the catalog tags to gin's validator and makes
// field errors report the form field name.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("status_code", func(fl validator.FieldLevel) bool {
			_, err := workflow.ParseStatus(fl.Field().String())
			return err == nil
		})
	})
}

// fieldErrors turns a binding error into field -> message. ok is false
// when err is not a validation failure (malformed body and the like).
func fieldErrors(err error) (map[string]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out, true
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return workflow.Required(fe.Field()).Message
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "status_code":
		return workflow.InvalidStatus().Message
	case "number":
		return "Enter digits only."
	}
	return "Enter a valid value."
}
