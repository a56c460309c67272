package models

// DocumentSelection is the compact export descriptor for one supplementary
// text document: its index in the archive plus the true-index list of its
// selected images.
type DocumentSelection struct {
	DocIndex     int   `json:"doc_index"`
	IncludeText  bool  `json:"include_text"`
	ImageIndices []int `json:"image_indices"`
}

// ArchiveSelection is the compact export descriptor for one archive.
// Index lists hold the positions whose selection flag is set, in ascending
// order; they index into the archive's asset slices.
type ArchiveSelection struct {
	ArchiveID          string `json:"archive_id" validate:"required"`
	Include            bool   `json:"include"`
	IncludeOriginalZip bool   `json:"include_original_zip"`

	VideoIndices       []int `json:"video_indices"`
	ImageIndices       []int `json:"image_indices"`
	PageDocIndices     []int `json:"page_doc_indices"`
	SpreadsheetIndices []int `json:"spreadsheet_indices"`
	ThumbnailIndices   []int `json:"thumbnail_indices"`

	Documents []DocumentSelection `json:"documents"`
}

// BundleSelection is the complete export descriptor handed to the bundle
// writer, one entry per archive in batch order.
type BundleSelection struct {
	Archives []ArchiveSelection `json:"archives" validate:"dive"`
}

// SpreadsheetPreview is the first-sheet preview of a spreadsheet asset
type SpreadsheetPreview struct {
	SheetName   string     `json:"sheet_name"`
	Rows        [][]string `json:"rows"` // At most 10 rows of 10 cells
	TotalSheets int        `json:"total_sheets"`
	SheetNames  []string   `json:"sheet_names"`
}
