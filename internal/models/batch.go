package models

import (
	"time"
)

const (
	// ArchiveStatusPending indicates the archive has been staged but not fully processed
	ArchiveStatusPending = "pending"
	// ArchiveStatusCompleted indicates scanning and extraction finished
	ArchiveStatusCompleted = "completed"
	// ArchiveStatusFailedPrefix prefixes a failure reason, e.g. "failed: no primary document"
	ArchiveStatusFailedPrefix = "failed: "
)

// DocFields holds the structured fields parsed from a directive document.
// Labels in the source documents are Chinese ("指令编号" etc.); values are
// stored verbatim.
type DocFields struct {
	InstructionNo string `json:"instruction_no"`
	Title         string `json:"title"`
	IssuedAt      string `json:"issued_at"` // Raw issue date string, e.g. "2024-03-01 10:30:00"
	Content       string `json:"content"`   // Multi-line directive body
}

// IsEmpty reports whether no structured field was found
func (f DocFields) IsEmpty() bool {
	return f.InstructionNo == "" && f.Title == "" && f.IssuedAt == "" && f.Content == ""
}

// TextDocument represents a supplementary text document found inside an
// archive (any .docx beyond the primary one).
type TextDocument struct {
	ID       string    `json:"id"` // doc_{uuid}
	Name     string    `json:"name"`
	Path     string    `json:"path"`      // Extracted copy under the staging dir
	Fields   DocFields `json:"fields"`    // Optional structured fields
	FullText string    `json:"full_text"` // Paragraph text of the whole document
	Images   []string  `json:"images"`    // Embedded images extracted to staging
}

// Archive represents one imported zip and its classified contents.
// The per-category path slices are append-only for the life of the batch;
// the only removal is removal of the whole archive.
type Archive struct {
	// Identity
	ID       string `json:"id"` // arc_{uuid}
	Filename string `json:"filename"`

	// Staging locations
	SourcePath   string `json:"source_path"`   // Operator-supplied path of the original zip
	StoredPath   string `json:"stored_path"`   // Staged copy under the batch directory
	ExtractedDir string `json:"extracted_dir"` // Root for extracted preview assets

	// Processing state
	Status    string `json:"status"` // pending | completed | failed: <reason>
	HasSample bool   `json:"has_sample"`

	// Primary document
	Fields    DocFields      `json:"fields"`
	Documents []TextDocument `json:"documents"` // Supplementary text documents

	// Classified assets (paths under ExtractedDir, in archive entry order)
	Videos       []string `json:"videos"`
	Images       []string `json:"images"`
	PageDocs     []string `json:"page_docs"`      // Page-oriented documents (PDFs)
	PageDocPages []int    `json:"page_doc_pages"` // Page count per page-document, recorded at import
	Spreadsheets []string `json:"spreadsheets"`
	Thumbnails   []string `json:"thumbnails"` // Rendered page images, filled by the render pipeline
}

// Failed reports whether the archive import failed
func (a *Archive) Failed() bool {
	return len(a.Status) >= len(ArchiveStatusFailedPrefix) && a.Status[:len(ArchiveStatusFailedPrefix)] == ArchiveStatusFailedPrefix
}

// AssetCount returns the total number of classified assets across categories
func (a *Archive) AssetCount() int {
	return len(a.Videos) + len(a.Images) + len(a.PageDocs) + len(a.Spreadsheets) + len(a.Thumbnails)
}

// Batch represents one import run and the archives it produced
type Batch struct {
	ID        string    `json:"id"` // batch_{unix}
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Archives  []Archive `json:"archives"`
}

// FindArchive returns the archive with the given ID, or nil
func (b *Batch) FindArchive(archiveID string) *Archive {
	for i := range b.Archives {
		if b.Archives[i].ID == archiveID {
			return &b.Archives[i]
		}
	}
	return nil
}

// BatchSummary is the list-view projection of a batch
type BatchSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	ArchiveCount int       `json:"archive_count"`
	FailedCount  int       `json:"failed_count"`
}

// Summarize builds the list-view projection
func (b *Batch) Summarize() BatchSummary {
	summary := BatchSummary{
		ID:           b.ID,
		CreatedAt:    b.CreatedAt,
		ArchiveCount: len(b.Archives),
	}
	for i := range b.Archives {
		if b.Archives[i].Failed() {
			summary.FailedCount++
		}
	}
	return summary
}
