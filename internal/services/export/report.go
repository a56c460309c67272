package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

const reportSheet = "Sheet1"

// reportHeaders are the column labels of the tabular report. Labels stay in
// the operators' language, matching the field labels inside the source
// documents.
var reportHeaders = []string{
	"序号",   // sequence
	"指令编号", // instruction number
	"指令标题", // title
	"下发时间", // issue date
	"内容摘要", // content summary
	"样本类型", // sample kind
	"是否有样本",
	"是否有视频",
	"视频数",
	"图片数",
	"文档数",
	"表格数",
	"原始文件", // source zip filename
}

var reportColWidths = []float64{6, 20, 42, 20, 50, 12, 10, 10, 8, 8, 8, 8, 36}

// WriteReport generates the XLSX report: one row per included archive,
// sorted by issue date ascending with undated entries last. An empty
// archiveIDs slice falls back to the stored selection state: every archive
// whose include flag is set.
func (s *Service) WriteReport(ctx context.Context, batchID string, archiveIDs []string, outputPath string) (string, error) {
	batch, err := s.storage.BatchStorage().GetBatch(ctx, batchID)
	if err != nil {
		return "", fmt.Errorf("failed to load batch: %w", err)
	}

	if len(archiveIDs) == 0 {
		if archiveIDs, err = s.BuildReportSelection(ctx, batchID); err != nil {
			return "", err
		}
	}

	rows := selectReportArchives(batch, archiveIDs)
	if len(rows) == 0 {
		return "", ErrNoArchivesSelected
	}
	sortByIssueDate(rows)

	if outputPath == "" {
		outputPath = filepath.Join(s.config.Storage.Filesystem.Exports,
			time.Now().Format("导出结果_20060102_150405.xlsx"))
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	total := len(rows)
	s.publish(ctx, interfaces.EventExportReportProgress,
		models.NewProgressEvent(models.OperationExportReport, 0, total, "准备数据", "Preparing report data"))

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeReportHeader(f); err != nil {
		return "", err
	}

	for i := range rows {
		archive := &rows[i]
		rowNum := i + 2 // Row 1 is the header

		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return "", fmt.Errorf("failed to locate report row: %w", err)
		}

		kind := sampleKind(archive)
		hasSample := "否"
		if kind != "否" {
			hasSample = "是"
		}
		hasVideo := "否"
		if len(archive.Videos) > 0 {
			hasVideo = "是"
		}

		err = f.SetSheetRow(reportSheet, cell, &[]interface{}{
			i + 1,
			strings.TrimSpace(archive.Fields.InstructionNo),
			strings.TrimSpace(archive.Fields.Title),
			strings.TrimSpace(archive.Fields.IssuedAt),
			summarize(archive.Fields.Content, 100),
			kind,
			hasSample,
			hasVideo,
			len(archive.Videos),
			len(archive.Images),
			len(archive.PageDocs),
			len(archive.Spreadsheets),
			archive.Filename,
		})
		if err != nil {
			return "", fmt.Errorf("failed to write report row: %w", err)
		}

		s.publish(ctx, interfaces.EventExportReportProgress,
			models.NewProgressEvent(models.OperationExportReport, i+1, total, "导出数据行",
				fmt.Sprintf("Writing row for %s", archive.Filename)))
	}

	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	s.publish(ctx, interfaces.EventExportReportProgress,
		models.CompletedEvent(models.OperationExportReport, fmt.Sprintf("exported %d rows", total)))

	s.logger.Info().
		Str("batch_id", batchID).
		Int("rows", total).
		Str("output", outputPath).
		Msg("Report export finished")

	return outputPath, nil
}

func (s *Service) writeReportHeader(f *excelize.File) error {
	for i, h := range reportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to locate header cell: %w", err)
		}
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to name column: %w", err)
		}
		if err := f.SetColWidth(reportSheet, col, col, reportColWidths[i]); err != nil {
			return fmt.Errorf("failed to size column: %w", err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to build header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(reportHeaders))
	if err != nil {
		return fmt.Errorf("failed to name last column: %w", err)
	}
	if err := f.SetCellStyle(reportSheet, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	// Keep the header visible while scrolling
	err = f.SetPanes(reportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}
	return nil
}

// selectReportArchives returns copies of the archives the report covers, in
// batch order. Unknown IDs are skipped.
func selectReportArchives(batch *models.Batch, archiveIDs []string) []models.Archive {
	wanted := make(map[string]bool, len(archiveIDs))
	for _, id := range archiveIDs {
		wanted[id] = true
	}
	var out []models.Archive
	for i := range batch.Archives {
		if wanted[batch.Archives[i].ID] {
			out = append(out, batch.Archives[i])
		}
	}
	return out
}

// sampleKind classifies an archive's supplementary material: text-and-image
// content, video content, both, or neither.
func sampleKind(archive *models.Archive) string {
	hasImageText := len(archive.Images) > 0 ||
		len(archive.PageDocs) > 0 ||
		len(archive.Thumbnails) > 0 ||
		len(archive.Spreadsheets) > 0 ||
		len(archive.Documents) > 0
	hasVideo := len(archive.Videos) > 0

	switch {
	case hasImageText && hasVideo:
		return "图文+视频"
	case hasImageText:
		return "图文"
	case hasVideo:
		return "视频"
	default:
		return "否"
	}
}

// sortByIssueDate orders archives by parsed issue date ascending. Entries
// whose date cannot be parsed keep their relative order at the end.
func sortByIssueDate(archives []models.Archive) {
	sort.SliceStable(archives, func(i, j int) bool {
		ti, iOK := parseIssuedAt(archives[i].Fields.IssuedAt)
		tj, jOK := parseIssuedAt(archives[j].Fields.IssuedAt)
		if iOK != jOK {
			return iOK
		}
		if !iOK {
			return false
		}
		return ti.Before(tj)
	})
}

// issuedAtLayouts are tried in order against trimmed issue date strings
var issuedAtLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
}

func parseIssuedAt(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range issuedAtLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// summarize collapses content to a single line of at most max runes
func summarize(content string, max int) string {
	line := strings.Join(strings.Fields(content), " ")
	runes := []rune(line)
	if len(runes) <= max {
		return line
	}
	return string(runes[:max]) + "…"
}
