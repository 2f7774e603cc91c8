package domain

import "errors"

var (
	// ErrRemoteUnavailable is returned when a listing or content fetch fails or times out.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrMalformedInput is returned when tabular input lacks required columns.
	ErrMalformedInput = errors.New("malformed input")
	// ErrNotFound is returned when a file id does not exist in the store.
	ErrNotFound = errors.New("file not found")
	// ErrNoData is returned when an aggregation has no rows to work with.
	ErrNoData = errors.New("no data")
)
