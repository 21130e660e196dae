package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingSelected is returned by a bulk delete with an empty selection.
	ErrNothingSelected = errors.New("no links selected for deletion")
	// ErrUsernameRequired is returned when the guest secret is given without a username.
	ErrUsernameRequired = errors.New("please enter a username for guest mode")
	// ErrInvalidUsername is returned for usernames that cannot name a guest file.
	ErrInvalidUsername = errors.New("username may only contain letters, digits, '.', '_' and '-' (max 64)")
	// ErrEmptyStore is returned when exporting a table without links.
	ErrEmptyStore = errors.New("no links to export")
)

// ValidationError reports bad user input. The operation that returned it left
// all state unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is user-input related and maps to a 400.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrNothingSelected) ||
		errors.Is(err, ErrUsernameRequired) ||
		errors.Is(err, ErrInvalidUsername)
}
