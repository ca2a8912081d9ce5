package validator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/strcase"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// ErrTranslatorNotFound indicates the English translator could not be built.
var ErrTranslatorNotFound = errors.New("validator: translator not found")

// maxMailboxLen is the longest forward path SMTP accepts.
const maxMailboxLen = 254

var reOTPCode = regexp.MustCompile(`^[0-9]{6}$`)

// rule is a custom tag with its English message; {0} is the field name.
type rule struct {
	tag     string
	message string
	check   func(s string) bool
}

var rules = []rule{
	{
		tag:     "otpcode",
		message: "{0} must be exactly 6 digits",
		check:   reOTPCode.MatchString,
	},
	{
		tag:     "mailbox",
		message: "{0} must be a deliverable email address",
		check: func(s string) bool {
			local, domain, ok := strings.Cut(s, "@")
			return ok && len(s) <= maxMailboxLen && local != "" &&
				strings.Contains(domain, ".") && !strings.ContainsAny(s, " <>\"")
		},
	},
}

// V10ValidationError maps snake_case field names to messages.
type V10ValidationError map[string]string

func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}
	b, _ := json.Marshal(map[string]string(vs)) //nolint:errcheck // string map always marshals
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string { return vs }

// V10Validator validates with go-playground/validator and English messages.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewV10Validator registers the default English messages and the otpcode
// and mailbox rules.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	lang := en.New()
	trans, ok := ut.New(lang, lang).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	for _, r := range rules {
		if err := register(validate, trans, r); err != nil {
			return nil, err
		}
	}

	return &V10Validator{validate: validate, translator: trans}, nil
}

func register(validate *validator.Validate, trans ut.Translator, r rule) error {
	err := validate.RegisterValidation(r.tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && r.check(s)
	})
	if err != nil {
		return err
	}

	return validate.RegisterTranslation(r.tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(r.tag, r.message, false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, err := ut.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("failed to translate validation error", "tag", fe.Tag(), "error", err)
				return fe.Error()
			}
			return msg
		},
	)
}

// Validate returns a V10ValidationError listing every failing field.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(V10ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
	}
	return out
}
