package storage

import "errors"

// Common client storage errors
var (
	// ErrEntityNotFound indicates that entity was not found in the local store
	ErrEntityNotFound = errors.New("entity not found")

	// ErrRecordNotFound indicates that change queue record was not found
	ErrRecordNotFound = errors.New("change record not found")

	// ErrSessionNotFound indicates that no device session is configured
	ErrSessionNotFound = errors.New("device session not found")

	// ErrCloudIDConflict indicates an attempt to overwrite an already assigned cloud_id
	ErrCloudIDConflict = errors.New("cloud_id is already assigned")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
