package common

import "errors"

// Sentinels shared by the gateway's repositories, services and transport.
// The gRPC layer maps each to a status code.
var (
	ErrorNotFound     = errors.New("not found")
	ErrorInvalidInput = errors.New("invalid input")
	// ErrorUnauthorized marks access to another user's data, such as a
	// blob path outside the caller's prefix.
	ErrorUnauthorized = errors.New("unauthorized")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
