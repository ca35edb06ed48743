// Package form validates user input field by field and keeps per-field and
// form-wide error messages.
package form

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	alphanumericRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("registering %s: %v", tag, err))
		}
	}
	must("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	must("login", func(fl validator.FieldLevel) bool {
		return alphanumericRe.MatchString(fl.Field().String())
	})
	must("password", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len([]rune(s)) < 8 {
			return false
		}
		var letter, digit bool
		for _, r := range s {
			switch {
			case r < unicode.MaxASCII && unicode.IsLetter(r):
				letter = true
			case r < unicode.MaxASCII && unicode.IsDigit(r):
				digit = true
			}
		}
		return letter && digit
	})
	return v
}

// Rule is one validator tag with the message shown when it fails.
type Rule struct {
	Tag     string
	Message string
}

// Check reports whether value satisfies the rule.
func (r Rule) Check(value string) bool {
	return validate.Var(value, r.Tag) == nil
}

func message(custom []string, def string) string {
	if len(custom) > 0 && custom[0] != "" {
		return custom[0]
	}
	return def
}

// Required rejects empty and whitespace-only values.
func Required(msg ...string) Rule {
	return Rule{Tag: "notblank", Message: message(msg, "Обязательное поле")}
}

// MinLength requires at least n characters.
func MinLength(n int, msg ...string) Rule {
	return Rule{Tag: fmt.Sprintf("min=%d", n), Message: message(msg, fmt.Sprintf("Минимум %d символов", n))}
}

// MaxLength allows at most n characters.
func MaxLength(n int, msg ...string) Rule {
	return Rule{Tag: fmt.Sprintf("max=%d", n), Message: message(msg, fmt.Sprintf("Максимум %d символов", n))}
}

// Email requires a syntactically valid address.
func Email(msg ...string) Rule {
	return Rule{Tag: "email", Message: message(msg, "Некорректный email")}
}

// Alphanumeric allows ASCII letters, digits and underscores.
func Alphanumeric(msg ...string) Rule {
	return Rule{Tag: "login", Message: message(msg, "Только буквы, цифры и _")}
}

// Password requires 8 characters with at least one letter and one digit.
func Password(msg ...string) Rule {
	return Rule{Tag: "password", Message: message(msg, "Минимум 8 символов, буквы и цифры")}
}
