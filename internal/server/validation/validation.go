// Package validation checks user supplied credentials before they reach the
// auth engine. Every failure wraps common.ErrorValidation.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/hasher"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// PasswordSpecials lists the characters that satisfy the special-character
// requirement.
const PasswordSpecials = "@$!%*?&"

var (
	emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	lowerRegexp   = regexp.MustCompile(`[a-z]`)
	upperRegexp   = regexp.MustCompile(`[A-Z]`)
	digitRegexp   = regexp.MustCompile(`[0-9]`)
	specialRegexp = regexp.MustCompile(`[` + regexp.QuoteMeta(PasswordSpecials) + `]`)
)

var emailRules = []validation.Rule{
	validation.Required,
	validation.Length(3, 254),
	validation.Match(emailRegexp).Error("must be a valid email address"),
}

var passwordRules = []validation.Rule{
	validation.Required,
	validation.Length(8, 0).Error("must be at least 8 characters long"),
	validation.By(maxBytes(hasher.MaxPasswordBytes)),
	validation.Match(lowerRegexp).Error("must contain a lowercase letter"),
	validation.Match(upperRegexp).Error("must contain an uppercase letter"),
	validation.Match(digitRegexp).Error("must contain a digit"),
	validation.Match(specialRegexp).Error("must contain one of " + PasswordSpecials),
}

var tokenRules = []validation.Rule{
	validation.Required,
	is.Hexadecimal,
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func Email(email string) error {
	return check("email", strings.TrimSpace(email), emailRules)
}

func Password(password string) error {
	return check("password", password, passwordRules)
}

// Token checks the shape of a verification or reset token.
func Token(token string) error {
	return check("token", token, tokenRules)
}

func check(field string, value string, rules []validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		var internal validation.InternalError
		if errors.As(err, &internal) {
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		return fmt.Errorf("%w: %s %v", common.ErrorValidation, field, err)
	}
	return nil
}

func maxBytes(n int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if len(s) > n {
			return fmt.Errorf("must be at most %d bytes long", n)
		}
		return nil
	}
}
