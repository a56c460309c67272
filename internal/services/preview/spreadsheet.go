package preview

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/colligo/internal/models"
)

const (
	maxPreviewRows = 10
	maxPreviewCols = 10
)

// Spreadsheet returns a first-sheet preview of a spreadsheet asset:
// up to 10 rows of 10 cells, plus the sheet inventory.
func (s *Service) Spreadsheet(ctx context.Context, batchID, archiveID string, index int) (*models.SpreadsheetPreview, error) {
	archive, err := s.storage.BatchStorage().GetArchive(ctx, batchID, archiveID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(archive.Spreadsheets) {
		return nil, fmt.Errorf("spreadsheet index out of range: %d of %d", index, len(archive.Spreadsheets))
	}

	path := archive.Spreadsheets[index]
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return nil, fmt.Errorf("preview of legacy .xls files is not supported: %s", filepath.Base(path))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets: %s", filepath.Base(path))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	preview := &models.SpreadsheetPreview{
		SheetName:   sheets[0],
		TotalSheets: len(sheets),
		SheetNames:  sheets,
	}
	for r, row := range rows {
		if r >= maxPreviewRows {
			break
		}
		cells := make([]string, 0, maxPreviewCols)
		for c, cell := range row {
			if c >= maxPreviewCols {
				break
			}
			cells = append(cells, cell)
		}
		preview.Rows = append(preview.Rows, cells)
	}
	return preview, nil
}
