// Package common defines sentinel errors and constants shared by the server
// loops and the edge agent. Callers should use errors.Is to match them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Scheduler errors.
	ErrInvalidWindow = errors.New("expiration precedes start")
	ErrLocked        = errors.New("reconciliation already in progress")

	// Monitor errors.
	ErrNoInterfaces = errors.New("device has no network interface address")
	ErrUnreachable  = errors.New("interface unreachable")

	// Agent errors.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrTruncated          = errors.New("download truncated")
)
