package validator

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate struct fields. Keys are the failing field names, values the failing tags.
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	errs := make(map[string]string)
	for _, e := range verrs {
		errs[e.Namespace()] = e.Tag()
	}
	return errs
}

// Format renders Validate output as "Field=tag" pairs in a stable order.
func Format(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for field, tag := range errs {
		parts = append(parts, field+"="+tag)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
