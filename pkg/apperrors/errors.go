package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrValidation        = errors.New("validation failed")
	ErrQAUnparseable     = errors.New("qa review response could not be parsed")
)
