package repository

import "errors"

// ErrNotFound is wrapped by every lookup or update that matched no row.
var ErrNotFound = errors.New("record not found")
