package validation

import (
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
)

// PasswordRule checks one aspect of a password. ownerEmail may be empty.
type PasswordRule func(password, ownerEmail string) error

// PasswordPolicy applies its rules in order and reports the first violation.
type PasswordPolicy struct {
	rules []PasswordRule
}

func NewPasswordPolicy(rules ...PasswordRule) *PasswordPolicy {
	return &PasswordPolicy{rules: append([]PasswordRule(nil), rules...)}
}

// DefaultPasswordPolicy is the policy used by the service: length bounds, at least three
// character classes, no reuse of the email local part and a minimum zxcvbn score.
func DefaultPasswordPolicy(minLength, minScore int) *PasswordPolicy {
	return NewPasswordPolicy(
		LengthRule(minLength, 72),
		CharacterClassesRule(3),
		NotContainingEmailRule(),
		StrengthRule(minScore),
	)
}

func (p *PasswordPolicy) ValidatePassword(password, ownerEmail string) error {
	for _, rule := range p.rules {
		if err := rule(password, ownerEmail); err != nil {
			return err
		}
	}
	return nil
}

// LengthRule bounds the password length in characters. bcrypt ignores bytes past 72,
// so max should not exceed that.
func LengthRule(min, max int) PasswordRule {
	return func(password, _ string) error {
		n := len([]rune(password))
		if n < min {
			return apperr.InvalidData("password must be at least %d characters long", min)
		}
		if max > 0 && len(password) > max {
			return apperr.InvalidData("password must be at most %d bytes long", max)
		}
		return nil
	}
}

// CharacterClassesRule requires characters from at least min of: upper, lower, digit, symbol.
func CharacterClassesRule(min int) PasswordRule {
	return func(password, _ string) error {
		var upper, lower, digit, symbol bool
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			case unicode.IsSymbol(r) || unicode.IsPunct(r):
				symbol = true
			}
		}
		classes := 0
		for _, ok := range []bool{upper, lower, digit, symbol} {
			if ok {
				classes++
			}
		}
		if classes < min {
			return apperr.InvalidData("password must include at least %d character types", min)
		}
		return nil
	}
}

// NotContainingEmailRule rejects passwords that contain the owner's email local part.
func NotContainingEmailRule() PasswordRule {
	return func(password, ownerEmail string) error {
		local, _, _ := strings.Cut(strings.ToLower(ownerEmail), "@")
		if len(local) < 3 {
			return nil
		}
		if strings.Contains(strings.ToLower(password), local) {
			return apperr.InvalidData("password must not contain the email address")
		}
		return nil
	}
}

// StrengthRule enforces a minimum zxcvbn score (0-4), with the owner's email as a user input.
func StrengthRule(minScore int) PasswordRule {
	if minScore > 4 {
		minScore = 4
	}
	return func(password, ownerEmail string) error {
		if minScore <= 0 {
			return nil
		}
		var inputs []string
		if ownerEmail != "" {
			local, _, _ := strings.Cut(ownerEmail, "@")
			inputs = []string{ownerEmail, local}
		}
		if zxcvbn.PasswordStrength(password, inputs).Score < minScore {
			return apperr.InvalidData("password is too weak")
		}
		return nil
	}
}
