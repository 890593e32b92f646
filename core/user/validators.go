package user

import (
	"fmt"
	"io/fs"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/darasahq/darasa/core"
	appfs "github.com/darasahq/darasa/fs"
)

const (
	pwdMinLength     = 8
	pwdMaxSimilarity = 0.7 // against the user's own attributes
)

var (
	roleTag  = "role"
	roleText = fmt.Sprintf("invalid role, must be one of: %s, %s, %s", RoleStudent, RoleTeacher, RoleAdmin)

	commonPasswords = make(map[string]struct{})
)

// InitValidators registers user-specific validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

// LoadCommonPasswords loads the embedded common-passwords list.
// Password validation still works without it, just weaker.
func LoadCommonPasswords(logger core.Logger) {
	raw, err := fs.ReadFile(appfs.FS, "assets/common-passwords.txt")
	if err != nil {
		logger.Warn(fmt.Sprintf("loading common passwords: %v", err), err)
		return
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if pwd := strings.TrimSpace(line); pwd != "" {
			commonPasswords[pwd] = struct{}{}
		}
	}
}

func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}

func pwdError(text string) error {
	return core.NewValidationError(nil, core.FieldError{Field: "password", Error: text})
}

// validatePassword enforces the password policy:
// minimum length, no whitespace, not entirely numeric, not a common password
// and not too similar to the user's own attributes.
func validatePassword(pwd string, userAttrs ...string) error {
	if len(pwd) < pwdMinLength {
		return pwdError(fmt.Sprintf("password is too short, must contain at least %d characters", pwdMinLength))
	}

	numeric := true
	for _, r := range pwd {
		if unicode.IsSpace(r) {
			return pwdError("password must not contain whitespace")
		}
		if !unicode.IsDigit(r) {
			numeric = false
		}
	}
	if numeric {
		return pwdError("password must not be entirely numeric")
	}

	if _, ok := commonPasswords[strings.ToLower(pwd)]; ok {
		return pwdError("password is too common")
	}

	for _, attr := range userAttrs {
		if attr == "" {
			continue
		}
		if similarity(strings.ToLower(pwd), strings.ToLower(attr)) >= pwdMaxSimilarity {
			return pwdError("password is too similar to your personal information")
		}
	}
	return nil
}

func similarity(a, b string) float64 {
	matcher := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return matcher.Ratio()
}
