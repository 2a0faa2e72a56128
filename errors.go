package pagedb

import (
	"errors"

	"github.com/oda/pagedb/internal/flock"
	"github.com/oda/pagedb/internal/pager"
	"github.com/oda/pagedb/internal/record"
)

var (
	// ErrNotFound is returned by Get and Delete for a key with no record.
	ErrNotFound = errors.New("pagedb: key not found")

	// ErrKeyRequired is returned when an operation is given an empty key.
	ErrKeyRequired = errors.New("pagedb: key required")

	// ErrPathRequired is returned by Open when given an empty path.
	ErrPathRequired = errors.New("pagedb: path required")

	// ErrClosed is returned by operations on a closed handle.
	ErrClosed = errors.New("pagedb: database is closed")

	// ErrRecordTooLarge is returned by Put when a key/value pair cannot
	// fit in a single page.
	ErrRecordTooLarge = record.ErrTooLarge

	// ErrChecksum is returned by Get when a data page fails verification.
	ErrChecksum = record.ErrChecksum

	// ErrLocked is returned by Open when another process holds the file.
	ErrLocked = flock.ErrLocked

	// Validation errors returned by Open for a file that is not a valid
	// database of this format and version.
	ErrBadMagic    = pager.ErrBadMagic
	ErrBadVersion  = pager.ErrBadVersion
	ErrBadPageSize = pager.ErrBadPageSize
)
