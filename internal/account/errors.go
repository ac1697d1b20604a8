package account

import "errors"

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSocialAccount      = errors.New("this account was created with social login, please use that method to sign in")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrNoPassword         = errors.New("this account does not have a password set, please use your social login method")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrUserNotFound       = errors.New("user not found")
	ErrIdentityMismatch   = errors.New("social identity does not match the supplied email")

	// ErrDeveloperEmailTaken means another account holds the developer
	// address, so the developer account cannot be created.
	ErrDeveloperEmailTaken = errors.New("developer email is registered to another account")
)

// ValidationError reports bad caller input with a user-facing message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}
