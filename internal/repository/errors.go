// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// depending on driver error strings.
package repository

import "errors"

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a state transition cannot be performed
// because the entity is not in an eligible status, e.g. deciding a paper
// that is no longer PENDING.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering with an email already
// present (case-insensitive).
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateAssignment is returned when a reviewer already holds a
// non-declined assignment for the paper.
var ErrDuplicateAssignment = errors.New("assignment already exists")

// ErrAlreadySubmitted is returned when a review already exists for the
// assignment.  A submitted assignment is immutable.
var ErrAlreadySubmitted = errors.New("review already submitted")
