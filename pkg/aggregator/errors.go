package aggregator

import "errors"

var (
	// ErrNoActiveSources is returned when construction finds no provider
	// with usable configuration.
	ErrNoActiveSources = errors.New("no active sources configured")

	// ErrInvalidSymbol is returned when the requested symbol cannot be
	// normalized to a canonical key.
	ErrInvalidSymbol = errors.New("invalid symbol")
)
