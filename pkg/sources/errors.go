// Package sources provides provider adapter interfaces and implementations.
package sources

import "errors"

var (
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrRateLimitExceeded indicates that a provider rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidResponse indicates a malformed response from the provider.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrInvalidSymbol indicates a symbol that fails basic validation.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidConfig indicates that the adapter configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrAPIKeyRequired indicates that an API key is required.
	ErrAPIKeyRequired = errors.New("API key is required")
	// ErrCredentialsRequired indicates that username/password credentials are required.
	ErrCredentialsRequired = errors.New("credentials are required")
	// ErrUnknownSource indicates a provider name with no registered factory.
	ErrUnknownSource = errors.New("unknown source")
	// ErrAuthenticationFailed indicates that provider authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")
)
