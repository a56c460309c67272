package raster

import "image"

// Document is one open page-document handle. Implementations are not
// required to be safe for concurrent use; the engine serializes all
// access on a single worker goroutine. Page indices are 1-based.
type Document interface {
	PageCount() int

	// PageSize returns the natural page dimensions in points.
	PageSize(page int) (width, height float64, err error)

	// RenderPage rasterizes one page at the given scale factor,
	// where 1.0 is the natural page size.
	RenderPage(page int, scale float64) (image.Image, error)

	Close() error
}

// Renderer opens a decodable document from validated source bytes.
type Renderer interface {
	Open(data []byte) (Document, error)
}
