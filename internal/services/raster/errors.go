package raster

import "errors"

// Classified rasterization failures. Input-classified errors
// (ErrEmptySource, ErrInvalidFormat) are never retried; ErrDecodeFailed
// is surfaced only after open retries are exhausted. All of them are
// terminal for one document and never for the batch.
var (
	ErrEmptySource     = errors.New("source file is empty")
	ErrInvalidFormat   = errors.New("source is not a valid page document")
	ErrEmptyDocument   = errors.New("document has no pages")
	ErrDecodeFailed    = errors.New("document could not be decoded")
	ErrNoPagesRendered = errors.New("no pages could be rendered")
)
