package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// Storage-level error taxonomy. Services branch on these two predicates
// only; everything else propagates wrapped.
var (
	ErrNotFound     = gorm.ErrRecordNotFound
	ErrDuplicateKey = gorm.ErrDuplicatedKey
)

// IsNotFoundError reports whether err means the requested record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a uniqueness-constraint violation.
// This is the single concurrency safety net: a race between two inserts on
// the same unique key turns the loser into this error, never a second row.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
