package models

// Category identifies one classified asset list on an archive
type Category string

const (
	CategoryVideos       Category = "videos"
	CategoryImages       Category = "images"
	CategoryPageDocs     Category = "pagedocs"
	CategorySpreadsheets Category = "spreadsheets"
	CategoryThumbnails   Category = "thumbnails"
)

// Categories lists every selectable asset category in a stable order
func Categories() []Category {
	return []Category{
		CategoryVideos,
		CategoryImages,
		CategoryPageDocs,
		CategorySpreadsheets,
		CategoryThumbnails,
	}
}

// Valid reports whether c names a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryVideos, CategoryImages, CategoryPageDocs, CategorySpreadsheets, CategoryThumbnails:
		return true
	}
	return false
}

// DocSelection holds the per-document flags of one supplementary text document
type DocSelection struct {
	IncludeText bool   `json:"include_text"`
	Images      []bool `json:"images"`
}

// Selection is the operator's per-archive curation state. Every flag slice
// mirrors the archive's asset slice of the same category index for index;
// the two are appended together and removed together.
type Selection struct {
	BatchID            string `json:"batch_id"`
	ArchiveID          string `json:"archive_id"`
	Include            bool   `json:"include"`              // Whole archive participates in export
	IncludeOriginalZip bool   `json:"include_original_zip"` // Raw zip is embedded into the bundle

	Videos       []bool `json:"videos"`
	Images       []bool `json:"images"`
	PageDocs     []bool `json:"page_docs"`
	Spreadsheets []bool `json:"spreadsheets"`
	Thumbnails   []bool `json:"thumbnails"`

	Documents []DocSelection `json:"documents"`
}

// NewSelectionForArchive builds the default selection for an archive:
// everything selected except raw page-documents, whose rendered page images
// supersede them in exports.
func NewSelectionForArchive(archive *Archive) *Selection {
	sel := &Selection{
		ArchiveID:          archive.ID,
		Include:            true,
		IncludeOriginalZip: false,
		Videos:             filledFlags(len(archive.Videos), true),
		Images:             filledFlags(len(archive.Images), true),
		PageDocs:           filledFlags(len(archive.PageDocs), false),
		Spreadsheets:       filledFlags(len(archive.Spreadsheets), true),
		Thumbnails:         filledFlags(len(archive.Thumbnails), true),
	}
	for i := range archive.Documents {
		sel.Documents = append(sel.Documents, DocSelection{
			IncludeText: true,
			Images:      filledFlags(len(archive.Documents[i].Images), true),
		})
	}
	return sel
}

func filledFlags(n int, value bool) []bool {
	flags := make([]bool, n)
	if value {
		for i := range flags {
			flags[i] = true
		}
	}
	return flags
}

// FlagsRef returns a pointer to the flag slice for the category so callers
// can mutate it in place. Returns false for unknown categories.
func (s *Selection) FlagsRef(category Category) (*[]bool, bool) {
	switch category {
	case CategoryVideos:
		return &s.Videos, true
	case CategoryImages:
		return &s.Images, true
	case CategoryPageDocs:
		return &s.PageDocs, true
	case CategorySpreadsheets:
		return &s.Spreadsheets, true
	case CategoryThumbnails:
		return &s.Thumbnails, true
	}
	return nil, false
}

// Flags returns a copy of the flag slice for the category
func (s *Selection) Flags(category Category) []bool {
	ref, ok := s.FlagsRef(category)
	if !ok {
		return nil
	}
	out := make([]bool, len(*ref))
	copy(out, *ref)
	return out
}

// MatchesArchive verifies the length invariant: every flag slice has exactly
// the length of the matching asset slice.
func (s *Selection) MatchesArchive(archive *Archive) bool {
	if len(s.Videos) != len(archive.Videos) ||
		len(s.Images) != len(archive.Images) ||
		len(s.PageDocs) != len(archive.PageDocs) ||
		len(s.Spreadsheets) != len(archive.Spreadsheets) ||
		len(s.Thumbnails) != len(archive.Thumbnails) {
		return false
	}
	if len(s.Documents) != len(archive.Documents) {
		return false
	}
	for i := range s.Documents {
		if len(s.Documents[i].Images) != len(archive.Documents[i].Images) {
			return false
		}
	}
	return true
}
