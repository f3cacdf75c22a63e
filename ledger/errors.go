package ledger

import "errors"

// Errors returned by Tracker.Record. A rejected operation leaves the tracker
// untouched.
var (
	ErrNegativeSize  = errors.New("size must not be negative")
	ErrMissingTarget = errors.New("operation requires a target label")
	ErrUnknownKind   = errors.New("unknown operation kind")
	ErrSizeOverflow  = errors.New("allocated byte total would overflow")
)
