package domain

import "errors"

var (
	// Content errors
	ErrFetchFailed         = errors.New("content fetch failed")
	ErrItemNotFound        = errors.New("item not found")
	ErrInvalidContentType  = errors.New("invalid content type")
	ErrSnapshotUnavailable = errors.New("content snapshot unavailable")

	// Cache errors
	ErrCacheUnavailable = errors.New("cache unavailable")
	ErrCacheMiss        = errors.New("cache miss")
	ErrCacheCorrupt     = errors.New("cache entry corrupt")

	// Search errors
	ErrSuperseded = errors.New("search superseded by a newer request")

	// Auth errors
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
)
