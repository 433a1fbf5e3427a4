package models

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

// Ledger error taxonomy. Every mutating command fails with one of these before
// any write persists; the caller layer maps each to a 4xx with the offending
// reason. ConflictRetryable is the only one a caller should retry automatically.

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// InsufficientQuantityError carries the units still available so the caller can
// render "only N units available".
type InsufficientQuantityError struct {
	Available int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity: only %d units available", e.Available)
}

type DuplicateBarcodeError struct {
	Barcode string
}

func (e *DuplicateBarcodeError) Error() string {
	return fmt.Sprintf("barcode %q is already in use", e.Barcode)
}

// AllocationInUseError blocks DeleteAllocation once sale lines reference the
// allocation; deleting it would orphan sale history.
type AllocationInUseError struct {
	Sold int
}

func (e *AllocationInUseError) Error() string {
	return fmt.Sprintf("allocation has %d sold units and cannot be deleted", e.Sold)
}

type ConflictRetryableError struct {
	Err error
}

func (e *ConflictRetryableError) Error() string {
	return "transaction conflict, retry: " + e.Err.Error()
}

func (e *ConflictRetryableError) Unwrap() error {
	return e.Err
}

// IsConflictRetryable reports whether the caller may retry the operation as-is.
func IsConflictRetryable(err error) bool {
	var conflict *ConflictRetryableError
	return errors.As(err, &conflict)
}

// classifyTxError folds low-level MySQL failures into the taxonomy. Duplicate
// keys on the allocations barcode index become DuplicateBarcode so the in-tx
// uniqueness check stays race-free even without SERIALIZABLE isolation.
func classifyTxError(err error, barcode string) error {
	if err == nil {
		return nil
	}
	if utils.IsDuplicateKeyDBError(err) && barcode != "" {
		return &DuplicateBarcodeError{Barcode: barcode}
	}
	if utils.IsRetryableDBError(err) {
		return &ConflictRetryableError{Err: err}
	}
	return err
}
