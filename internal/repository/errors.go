// Package repository provides MySQL-backed persistence for spaces,
// persons, the custody ledger and the authorization overlay.  The
// sentinel values below let handlers distinguish failure scenarios
// with errors.Is; the custody-specific outcomes (already checked out,
// no open checkout, and so on) live in the custody package and are
// produced by the transaction repository where it implements the
// engine's storage interfaces.
package repository

import "errors"

// ErrSpaceNotFound is returned when a key number has never been
// registered. Handlers should translate this into an HTTP 404.
var ErrSpaceNotFound = errors.New("space not found")

// ErrPersonNotFound is returned when a person id does not exist.
var ErrPersonNotFound = errors.New("person not found")

// ErrAuthorizationNotFound is returned when an authorization id does
// not exist.
var ErrAuthorizationNotFound = errors.New("authorization not found")

// ErrConflict is returned when an insert collides with existing state,
// such as linking the same person to an authorization twice. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
