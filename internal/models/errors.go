package models

import "errors"

// Custom errors
var (
	ErrInvalidInput = errors.New("invalid optimization input")
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
)
