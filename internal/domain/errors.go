package domain

import "errors"

var (
	// ErrDataUnavailable means the inventory store could not be read. It aborts a run.
	ErrDataUnavailable = errors.New("inventory data unavailable")

	// ErrWriteFailure means the store rejected an orderpoint update.
	ErrWriteFailure = errors.New("orderpoint write failed")

	// ErrRunInProgress is returned when a run is requested while another is active.
	ErrRunInProgress = errors.New("replenishment run already in progress")

	// ErrRunNotFound is returned by the run ledger for unknown runs.
	ErrRunNotFound = errors.New("replenishment run not found")
)
