// Package apperr holds the sentinel errors shared across pagefs layers.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidPage     = errors.New("invalid page")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrNotConfigured   = errors.New("not configured")
	ErrNoSnapshot      = errors.New("no snapshot saved")
)
