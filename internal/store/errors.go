package store

import "errors"

var (
	ErrStore    = errors.New("record store error")
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with an existing record")
)
