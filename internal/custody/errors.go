// Package custody implements the checkout/checkin transaction engine,
// the derived-status projector and the authorization window resolver.
// Persistence is reached through small interfaces so the rules stay
// independent of the storage layer; the repository package provides the
// MySQL implementations. All failures below are recoverable outcomes
// reported to the caller, never process-fatal.
package custody

import "errors"

// ErrSpaceNotActive is returned when an operation targets a key number
// that was never registered or whose space has been deactivated.
// Handlers should translate this into an HTTP 404/409 response.
var ErrSpaceNotActive = errors.New("space not registered or not active")

// ErrMissingHolderName is returned by open checkout when the holder
// name is empty after trimming whitespace.
var ErrMissingHolderName = errors.New("holder name is required")

// ErrAlreadyCheckedOut is returned by open checkout when the key
// already has an open transaction. The caller must close it first.
var ErrAlreadyCheckedOut = errors.New("key already checked out")

// ErrNoOpenCheckout is returned by close checkout when the key has no
// open transaction to close.
var ErrNoOpenCheckout = errors.New("no open checkout for key")

// ErrStorageConstraint is returned by the storage layer when a write
// loses a race despite the preceding locked check (e.g. the unique
// open-row index rejects a second insert). The engine translates it
// into ErrAlreadyCheckedOut or ErrNoOpenCheckout so callers see one
// consistent failure per operation.
var ErrStorageConstraint = errors.New("storage constraint violation")
