package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	scriptPattern  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	sqlCommentRe   = regexp.MustCompile(`--`)
	sqlStatementRe = regexp.MustCompile(`(?i);.*?(drop|delete|insert|update|select).*?`)
	specialChars   = `!@#$%^&*(),.?":{}|<>`
	upperASCII     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// ValidateEmail reports whether email looks like local@domain.tld
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// PasswordPolicy configures ValidatePasswordStrength
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireNumbers   bool
	RequireSpecial   bool
}

// DefaultPasswordPolicy requires 8 characters with an uppercase letter, a
// digit and a special character.
var DefaultPasswordPolicy = PasswordPolicy{
	MinLength:        8,
	RequireUppercase: true,
	RequireNumbers:   true,
	RequireSpecial:   true,
}

// ValidatePasswordStrength returns one message per failed rule.
func ValidatePasswordStrength(password string, policy PasswordPolicy) (bool, []string) {
	var errs []string

	if utf8.RuneCountInString(password) < policy.MinLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", policy.MinLength))
	}
	if policy.RequireUppercase && !strings.ContainsAny(password, upperASCII) {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if policy.RequireNumbers && !strings.ContainsFunc(password, unicode.IsDigit) {
		errs = append(errs, "Password must contain at least one number")
	}
	if policy.RequireSpecial && !strings.ContainsAny(password, specialChars) {
		errs = append(errs, "Password must contain at least one special character")
	}
	return len(errs) == 0, errs
}

// PasswordScore rates a password from 0 (weak) to 4 (strong). It is shown
// to users as a meter and never rejects a password on its own.
func PasswordScore(password string, userInputs ...string) int {
	return zxcvbn.PasswordStrength(password, userInputs).Score
}

// SanitizeInput strips script blocks and SQL-looking fragments from free text
func SanitizeInput(text string) string {
	if text == "" {
		return ""
	}
	text = scriptPattern.ReplaceAllString(text, "")
	text = sqlCommentRe.ReplaceAllString(text, "")
	text = sqlStatementRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
