package services

import (
	"errors"
	"strings"

	"codegalaxy/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrEmailNotVerified   = errors.New("email address is not verified")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
	ErrUnknownModel       = errors.New("unknown model")
)

// ValidationError lists every rule an input broke. PasswordStrength is set
// when a password was rejected and carries its 0-4 meter score.
type ValidationError struct {
	Errors           []string
	PasswordStrength *int
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

func invalid(msgs ...string) error {
	return &ValidationError{Errors: msgs}
}

// weakPassword rejects password and scores it against the account's own
// name and email.
func weakPassword(password string, msgs []string, userInputs ...string) error {
	score := utils.PasswordScore(password, userInputs...)
	return &ValidationError{Errors: msgs, PasswordStrength: &score}
}
