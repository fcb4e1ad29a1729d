package database

import "errors"

// ErrNotFound is returned when a requested record or database does not exist.
var ErrNotFound = errors.New("not found")
