package raster

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// fitzRenderer opens documents with MuPDF via go-fitz
type fitzRenderer struct{}

func (r *fitzRenderer) Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

// fitzDocument adapts the 0-based go-fitz API to 1-based page indices
type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) PageSize(page int) (float64, float64, error) {
	bounds, err := d.doc.Bound(page - 1)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read page bounds: %w", err)
	}
	return float64(bounds.Dx()), float64(bounds.Dy()), nil
}

func (d *fitzDocument) RenderPage(page int, scale float64) (image.Image, error) {
	// go-fitz renders by DPI; page units are points at 72 per inch
	return d.doc.ImageDPI(page-1, 72.0*scale)
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
