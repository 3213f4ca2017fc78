// Package repository defines error types that are reused across multiple
// repositories.  Handlers and the write-back translator use these sentinel
// values to tell "the row is not there" apart from real database failures.
package repository

import "errors"

// ErrUserNotFound is returned when an update matched no row in the target
// users table.  Handlers should translate this into an HTTP 404 response.
var ErrUserNotFound = errors.New("user not found")

// ErrInvalidIdentifier is returned when a table or column name coming from
// the registry or the mapping data is not a plain SQL identifier.  Such
// names are never interpolated into a statement.
var ErrInvalidIdentifier = errors.New("invalid sql identifier")

// ErrUnsupportedDriver is returned for a DB_DRIVER other than mysql or postgres.
var ErrUnsupportedDriver = errors.New("unsupported database driver")
