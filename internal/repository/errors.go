// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// string matching: for example, ErrForbidden indicates that the current
// user is not a party of the chat they are touching, while ErrConflict
// signals that an operation lost a uniqueness race.
package repository

import (
    "errors"
    "strings"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they are not a party of. Handlers translate this into the
// same generic denial as a missing resource so existence is not leaked.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot proceed
// because of conflicting state, such as a duplicate review for the same
// consultant. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (error 1062). The driver does not export a typed error for this, so
// the code is matched in the message.
func isDuplicateKey(err error) bool {
    return err != nil && strings.Contains(err.Error(), "1062")
}
