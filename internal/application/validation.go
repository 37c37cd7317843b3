package application

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/example/shikkhajar/internal/calendar"
	"github.com/example/shikkhajar/internal/dates"
)

// custom validation tags
const (
	notBlankTag  = "notblank"
	enumTag      = "enum"
	phoneTag     = "phone"
	classTimeTag = "classtime"
	dateTag      = "isodate"
)

type inputValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var inputs = newInputValidator()

func newInputValidator() *inputValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON field names so messages match the stored documents.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(enumTag, enumValidation)
	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	_ = validate.RegisterValidation(classTimeTag, classTimeValidation)
	_ = validate.RegisterValidation(dateTag, dateValidation)

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, enumTag, phoneTag, classTimeTag, dateTag} {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustomValidationErrs)
	}

	return &inputValidator{validate: validate, translator: translator}
}

// check validates input and converts failures into a ValidationError.
func (v *inputValidator) check(input any) *ValidationError {
	vErr := &ValidationError{}

	err := v.validate.Struct(input)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("input", err.Error())
		return vErr
	}
	for _, fe := range fieldErrs {
		vErr.add(fe.Field(), fe.Translate(v.translator))
	}
	return vErr
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case enumTag:
		return "unsupported value"
	case phoneTag:
		return "must be a phone number"
	case classTimeTag:
		return "must be a time in HH:MM format"
	case dateTag:
		return "must be a date in YYYY-MM-DD format"
	default:
		return fe.Error()
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func enumValidation(fl validator.FieldLevel) bool {
	if value, ok := fl.Field().Interface().(interface{ Valid() bool }); ok {
		return value.Valid()
	}
	return false
}

// phoneValidation accepts an optional leading + followed by 6 to 15 digits,
// ignoring spaces and dashes.
func phoneValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	digits := 0
	for i, r := range strings.TrimSpace(str) {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0, r == ' ', r == '-':
		default:
			return false
		}
	}
	return digits >= 6 && digits <= 15
}

func classTimeValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, _, err := calendar.ParseClassTime(str)
	return err == nil
}

func dateValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := dates.Parse(str)
	return err == nil
}
