package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNoSnapshot    = errors.New("no snapshot stored")
	ErrNoTable       = errors.New("no table loaded")
	ErrFetchFailed   = errors.New("fetch failed")
	ErrLockHeld      = errors.New("lock held")
)
