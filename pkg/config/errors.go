package config

import "errors"

var (
	// ErrInvalidTimeout indicates that the aggregator request timeout is invalid.
	ErrInvalidTimeout = errors.New("aggregator request_timeout must be positive")
	// ErrInvalidLogLevel indicates an unknown logging level.
	ErrInvalidLogLevel = errors.New("invalid logging level")
	// ErrIncompleteCredentials indicates partially configured provider credentials.
	ErrIncompleteCredentials = errors.New("incomplete provider credentials")
)
