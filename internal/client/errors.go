package client

import "errors"

var (
	ErrUnavailable = errors.New("daemon not reachable")
	ErrDaemon      = errors.New("daemon error")
	ErrResponse    = errors.New("invalid daemon response")
)
