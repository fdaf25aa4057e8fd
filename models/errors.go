package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidationConflict = errors.New("validation conflict")
	ErrVersionConflict    = errors.New("follow-up was modified concurrently")
)

var (
	ErrFollowUpNotFound = fmt.Errorf("follow-up %w", ErrNotFound)
	ErrClusterNotFound  = fmt.Errorf("cluster %w", ErrNotFound)
	ErrPersonNotFound   = fmt.Errorf("person %w", ErrNotFound)

	ErrFollowUpClosed   = fmt.Errorf("%w: follow-up is already closed", ErrValidationConflict)
	ErrAlreadyHandedOff = fmt.Errorf("%w: follow-up was already handed off", ErrValidationConflict)
	ErrInvalidTarget    = fmt.Errorf("%w: invalid target person", ErrValidationConflict)
	ErrImmutableField   = fmt.Errorf("%w: field cannot be changed after creation", ErrValidationConflict)
	ErrInvalidConfig    = fmt.Errorf("%w: invalid follow-up configuration", ErrValidationConflict)
	ErrMessageRequired  = fmt.Errorf("%w: message is required", ErrValidationConflict)
	ErrInvalidChannel   = fmt.Errorf("%w: unsupported channel", ErrValidationConflict)
)
