package application

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/example/parish-roster/internal/scheduler"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "timeofday", func(fl validator.FieldLevel) bool {
		_, err := scheduler.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := scheduler.ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// validateInput runs the struct tags of input and converts failures into
// field errors keyed by snake_case field name.
func validateInput(input any) *ValidationError {
	vErr := &ValidationError{}

	err := validate.Struct(input)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("input", "entrada inválida")
		return vErr
	}
	for _, fe := range fieldErrs {
		field := snakeCase(fe.StructField())
		if _, exists := vErr.FieldErrors[field]; exists {
			continue
		}
		vErr.add(field, fieldMessage(fe))
	}
	return vErr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obrigatório"
	case "timeofday":
		return "horário inválido, use HH:MM"
	case "isodate":
		return "data inválida, use AAAA-MM-DD"
	case "gtefield":
		return "deve ser maior ou igual ao mínimo"
	case "min":
		return "deve ser no mínimo " + fe.Param()
	case "max":
		return "deve ser no máximo " + fe.Param()
	}
	return "valor inválido"
}

func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
