package importer

import "errors"

var (
	// ErrNoInput is returned when an import is requested with no paths
	ErrNoInput = errors.New("no archives to import")
	// ErrNoPrimaryDocument marks an archive without any text document;
	// there is nothing to curate without one.
	ErrNoPrimaryDocument = errors.New("no primary document in archive")
)
