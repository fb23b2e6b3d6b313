package service

import (
	"fmt"

	"agrisupply/internal/store"
)

// ErrNotFound is the service-level view of a missing record.
var ErrNotFound = store.ErrNotFound

// InsufficientStockError is surfaced when a sale requests more than the
// item's available stock.
type InsufficientStockError = store.InsufficientStockError

// ValidationError reports caller input that violates a precondition. It is
// detected before any write, so it never leaves partial state behind.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// PersistenceError reports a write the backend rejected or failed. The
// backend's message is carried verbatim.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// FetchFailedError reports a failed read. Callers receive it instead of an
// empty collection so "no data" stays distinguishable from "fetch failed".
type FetchFailedError struct {
	Entity string
	Err    error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Entity, e.Err)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}
