package project

import "errors"

// Error classes shared by every lifecycle operation. Callers wrap them with
// context and match with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
)
