package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/hilthontt/civicreport/internal/domain"
)

var (
	structOnce       sync.Once
	structValidate   *validator.Validate
	structTranslator ut.Translator
)

func lazyinit() {
	structOnce.Do(func() {
		structValidate = validator.New(validator.WithRequiredStructEnabled())
		structValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		locale := en.New()
		uni := ut.New(locale, locale)
		structTranslator, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(structValidate, structTranslator)

		registerDomainRules()
	})
}

func registerDomainRules() {
	rules := map[string]struct {
		fn      validator.Func
		message string
	}{
		"issue_type": {
			fn: func(fl validator.FieldLevel) bool {
				_, err := domain.ParseIssueType(fl.Field().String())
				return err == nil
			},
			message: "{0} must be a known issue type",
		},
		"report_status": {
			fn: func(fl validator.FieldLevel) bool {
				_, err := domain.ParseStatus(fl.Field().String())
				return err == nil
			},
			message: "{0} must be one of submitted, acknowledged, in_progress, resolved",
		},
		"department": {
			fn: func(fl validator.FieldLevel) bool {
				return domain.IsKnownDepartment(fl.Field().String())
			},
			message: "{0} must be a known department",
		},
	}

	for tag, rule := range rules {
		_ = structValidate.RegisterValidation(tag, rule.fn)
		message := rule.message
		_ = structValidate.RegisterTranslation(tag, structTranslator, func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(fe.Tag(), fe.Field())
			return t
		})
	}
}

// Struct validates obj by its `validate` tags. The returned error carries
// the first translated message and wraps domain.ErrInvalidInput.
func Struct(obj any) error {
	lazyinit()

	err := structValidate.Struct(obj)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		return &Error{Messages: translate(validationErrs)}
	}
	return err
}

func translate(errs validator.ValidationErrors) []string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Translate(structTranslator))
	}
	return messages
}

type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *Error) Unwrap() error {
	return domain.ErrInvalidInput
}
