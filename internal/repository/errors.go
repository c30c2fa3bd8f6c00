// Package repository defines error values that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// depending on driver error codes. For example, ErrListingNotFound maps
// to an HTTP 404 while ErrForbidden maps to 403.
package repository

import "errors"

// ErrListingNotFound is returned when a listing id does not resolve to a
// row. Soft-deleted listings still resolve; only their visibility
// changes.
var ErrListingNotFound = errors.New("listing not found")

// ErrUserNotFound is returned when a user id does not resolve to a row.
var ErrUserNotFound = errors.New("user not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own and are not privileged to touch. Handlers
// should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")
