package shop

import "errors"

// Catégories d'erreurs métier. Les handlers HTTP les traduisent en statuts.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error porte un message destiné au client et sa catégorie.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func validationError(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }

func notFoundError(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

func forbiddenError(msg string) error { return &Error{Kind: ErrForbidden, Message: msg} }

func conflictError(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }

func invalidStateError(msg string) error { return &Error{Kind: ErrInvalidState, Message: msg} }

func unauthorizedError(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }
