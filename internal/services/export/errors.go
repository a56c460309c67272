package export

import "errors"

var (
	// ErrBatchNotFound is returned when the batch does not exist
	ErrBatchNotFound = errors.New("batch not found")
	// ErrNoArchivesSelected is returned when an export would produce an empty artifact
	ErrNoArchivesSelected = errors.New("no archives selected for export")
)
