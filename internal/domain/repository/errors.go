package repository

import "errors"

var (
	// ErrNotFound is returned by writes that target a row that no longer exists.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when the users.email unique constraint fires.
	ErrDuplicateEmail = errors.New("duplicate email")
)
