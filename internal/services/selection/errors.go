package selection

import "errors"

var (
	// ErrNotFound is returned when no selection exists for an archive
	ErrNotFound = errors.New("selection not found")
	// ErrUnknownCategory is returned for a category name outside the five asset lists
	ErrUnknownCategory = errors.New("unknown asset category")
	// ErrIndexOutOfRange signals an index beyond the current flag count.
	// Callers racing an in-flight append should re-read lengths and retry.
	ErrIndexOutOfRange = errors.New("flag index out of range")
)
