package preview

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
)

// persistPages writes encoded page images to the archive's staging area
// and returns the paths written, in page order. Partial persistence is
// tolerated: a page that fails to write is logged and dropped, and the
// caller records exactly the paths that succeeded.
func (s *Service) persistPages(batchID, archiveID, docName string, result *models.RasterResult) []string {
	dir := filepath.Join(
		common.ArchiveDir(s.config.Storage.Filesystem.Staging, batchID, archiveID),
		"thumbs",
		common.SanitizeStem(docName),
	)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Error().Err(err).Str("dir", dir).Msg("Failed to create thumbnail directory")
		return nil
	}

	var saved []string
	for i, page := range result.Pages {
		// Name files by source page number so gaps from skipped pages
		// stay visible
		pageNo := i + 1
		if i < len(result.Rendered) {
			pageNo = result.Rendered[i]
		}

		path := filepath.Join(dir, fmt.Sprintf("page_%03d.jpg", pageNo))
		if err := os.WriteFile(path, page, 0644); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to persist page image, skipping")
			continue
		}
		saved = append(saved, path)
	}
	return saved
}
