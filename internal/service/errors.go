package service

import (
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/reconcile"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknown            = errors.New("An unknown error occurred. Please try again later.")
	ErrLinkGroupRequired  = errors.New("Link group is required.")
	ErrLinkGroupExists    = errors.New("Link group already exists.")
	ErrLinkGroupNotFound  = errors.New("Link group not found.")
	ErrUnknownTemplate    = errors.New("Template is not supported.")
	ErrEmptyLink          = reconcile.ErrEmptyItem

	errNoRows = errors.New("no rows affected")
)

// ValidationError carries per field messages back to the form.
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
