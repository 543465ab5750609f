package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation addresses an unknown batch
	// identifier. No side effects are performed.
	ErrNotFound = errors.New("batch not found")

	// ErrBatchClaimed is returned when a second coordinator tries to ingest
	// a batch that is already processing.
	ErrBatchClaimed = errors.New("batch already claimed by another coordinator")

	// ErrBatchActive is returned when eviction is requested for a batch that
	// has not reached a terminal status yet.
	ErrBatchActive = errors.New("batch has not reached a terminal status")

	// ErrBatchCompleted is returned when rows arrive for, or a claim targets,
	// a batch that already reached a terminal status.
	ErrBatchCompleted = errors.New("batch already in a terminal status")
)

// ValidationError marks a single row that failed required-field checks.
// It is counted against the batch's error total, never fatal to ingestion.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid row: %s %s", e.Field, e.Reason)
}

// StorageError wraps a failed chunk write. The in-flight chunk was rolled
// back and the batch marked failed; earlier committed chunks stay committed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
