package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/ar"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "{0}: يسمح فقط بالحروف والأرقام والشرطة السفلية"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	// built-in tags used across the app; texts are in the operator's language
	builtinTexts = map[string]string{
		"required":      "{0} مطلوب",
		"required_with": "{0} مطلوب",
		"email":         "{0} غير صالح",
		"oneof":         "{0} يجب أن يكون إحدى القيم: {1}",
		"min":           "{0} قصير جدا",
		"max":           "{0} طويل جدا",
		"eqfield":       "{0} غير مطابق",
		"uuid4":         "{0} غير صالح",
	}
)

// NewTranslator returns the operator-facing (Arabic) translator.
func NewTranslator() ut.Translator {
	uni := ut.New(en.New(), ar.New())
	translator, _ := uni.GetTranslator("ar")
	return translator
}

// NewValidator returns a ready to use validator and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	// Use `label` (human readable) or JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	for tag, text := range builtinTexts {
		RegisterCustomTranslation(validate, translator, tag, text, true)
	}
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
// `text` may reference the field name as {0} and the tag parameter as {1}.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field(), fe.Param())
			return s
		},
	)
}

// TranslateErrors flattens validator errors into FieldErrors keyed by the JSON field name.
func TranslateErrors(errs validator.ValidationErrors, translator ut.Translator) []FieldError {
	flds := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		flds = append(flds, FieldError{Field: jsonFieldName(fe), Error: fe.Translate(translator)})
	}
	return flds
}

func jsonFieldName(fe validator.FieldError) string {
	// StructNamespace is `Struct.Field`; the JSON name is what API clients know.
	ns := fe.StructNamespace()
	if i := strings.LastIndex(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return Snake(ns)
}

// Snake converts a Go identifier (StudentCode) to snake case (student_code).
func Snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}
