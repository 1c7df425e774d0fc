// Package store contains the persistence layer: thin SQL/Mongo wrappers with
// no business logic. Services depend on narrow interfaces satisfied by these
// types so domain transitions stay testable without a live datastore.
package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("store: username already exists")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("store: email already exists")
	// ErrDuplicateAnnotation is returned when an annotator already has an
	// annotation of the given type on a dataset.
	ErrDuplicateAnnotation = errors.New("store: annotation already exists")
)

const uniqueViolation = "23505"

// constraintErr maps a Postgres unique violation to a sentinel based on the
// violated constraint name; other errors pass through unchanged.
func constraintErr(err error, byConstraint map[string]error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if mapped, ok := byConstraint[pqErr.Constraint]; ok {
			return mapped
		}
	}
	return err
}
