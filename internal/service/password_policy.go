package service

import (
	"unicode"
	"unicode/utf8"

	"github.com/qrewards/qrewards/internal/config"
)

// PasswordPolicyError 不满足密码策略，Key/Args 用于按语言渲染提示
type PasswordPolicyError struct {
	key  string
	args []interface{}
}

func (e *PasswordPolicyError) Error() string { return e.key }

func (e *PasswordPolicyError) Is(target error) bool { return target == ErrWeakPassword }

func (e *PasswordPolicyError) Key() string { return e.key }

func (e *PasswordPolicyError) Args() []interface{} { return e.args }

type charClass struct {
	required bool
	key      string
	match    func(rune) bool
}

func isSpecialRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}

// validatePassword 先校验长度，再按大写、小写、数字、特殊字符的顺序逐项检查
func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength > 0 && utf8.RuneCountInString(password) < policy.MinLength {
		return &PasswordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	}
	classes := []charClass{
		{policy.RequireUpper, "error.password_require_upper", unicode.IsUpper},
		{policy.RequireLower, "error.password_require_lower", unicode.IsLower},
		{policy.RequireNumber, "error.password_require_number", unicode.IsDigit},
		{policy.RequireSpecial, "error.password_require_special", isSpecialRune},
	}
	for _, class := range classes {
		if !class.required {
			continue
		}
		found := false
		for _, r := range password {
			if class.match(r) {
				found = true
				break
			}
		}
		if !found {
			return &PasswordPolicyError{key: class.key}
		}
	}
	return nil
}
