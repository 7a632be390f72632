package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrValidation         = errors.New("invalid input")
	ErrForbidden          = errors.New("not allowed")
	ErrConflict           = errors.New("conflicting state")
)

// HabitLockedError is returned when a completion is attempted inside the
// habit's recurrence window. It carries the lock boundary so callers can tell
// players exactly when the habit opens again.
type HabitLockedError struct {
	UnlocksAt time.Time
}

func (e *HabitLockedError) Error() string {
	return fmt.Sprintf("habit locked until %s", e.UnlocksAt.UTC().Format(time.RFC3339))
}

// AsHabitLocked unwraps err into a *HabitLockedError, if it is one.
func AsHabitLocked(err error) (*HabitLockedError, bool) {
	var locked *HabitLockedError
	if errors.As(err, &locked) {
		return locked, true
	}
	return nil, false
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
