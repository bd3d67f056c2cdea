package anagram

import "errors"

var (
	// ErrNotFound is returned when a signature is absent from the cache or the store.
	ErrNotFound = errors.New("anagram: signature not found")

	// ErrInvalidCandidate is returned for candidates missing required fields.
	ErrInvalidCandidate = errors.New("anagram: invalid candidate")

	// ErrCorruptSegment marks a segment file that cannot be decoded.
	ErrCorruptSegment = errors.New("anagram: corrupt segment")

	// ErrMaintenancePending is returned by Handle after MaintenanceRequired was
	// reported and before PerformMaintenance has run.
	ErrMaintenancePending = errors.New("anagram: maintenance pending")

	// ErrClosed is returned by operations on a closed engine or store.
	ErrClosed = errors.New("anagram: closed")
)
