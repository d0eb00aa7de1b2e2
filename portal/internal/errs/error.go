package errs

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("request was modified concurrently, refresh and retry")
	ErrHasHistory         = errors.New("equipment has borrow history and cannot be deleted")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("access denied")
	ErrNameRequired       = errors.New("name is required")
)
