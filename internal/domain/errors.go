package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by services and translated to status codes at the HTTP boundary.
var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyJoined      = errors.New("already joined")
	ErrStorage            = errors.New("storage failure")
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrDuplicateEmail = fmt.Errorf("%w: email already in use", ErrValidation)
)
