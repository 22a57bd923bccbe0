package domain

import "errors"

var (
	// ErrNotFound is returned when a shopping list or receipt does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrStorageFailure is returned when the storage driver fails
	ErrStorageFailure = errors.New("storage failure")

	// ErrPublishFailure is returned when an event cannot be delivered to the broker
	ErrPublishFailure = errors.New("event publish failed")
)
