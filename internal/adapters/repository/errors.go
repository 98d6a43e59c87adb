package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound = errors.New("record not found")
	ErrInvalid  = errors.New("invalid record")
	ErrClosed   = errors.New("store closed")
)
