package config

import "errors"

var (
	ErrConfig        = errors.New("invalid configuration")
	ErrIncompleteTLS = errors.New("incomplete remote daemon configuration")
)
