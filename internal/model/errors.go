package model

import "errors"

var (
	// ErrNotFound is returned when a mutation references an unknown id.
	// Callers treat it as a no-op.
	ErrNotFound = errors.New("not found")

	ErrDefaultCategory  = errors.New("default category cannot be changed")
	ErrDuplicatePattern = errors.New("url pattern already used by another category")
	ErrEmptyName        = errors.New("category name is empty")
	ErrEmptyURL         = errors.New("bookmark url is empty")
)
