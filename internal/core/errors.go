package core

import "errors"

// Sentinel errors classifying every failure in the domain. Callers wrap them
// with fmt.Errorf("%w: ...") so errors.Is keeps working through the layers;
// the HTTP layer maps each class to a status code.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage failure")
)
