package preview

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/colligo/internal/models"
)

// ImageDataURL loads one image asset and returns it as a base64 data
// URL. Only the image and thumbnail categories hold previewable images.
func (s *Service) ImageDataURL(ctx context.Context, batchID, archiveID string, category models.Category, index int) (string, error) {
	archive, err := s.storage.BatchStorage().GetArchive(ctx, batchID, archiveID)
	if err != nil {
		return "", err
	}

	var paths []string
	switch category {
	case models.CategoryImages:
		paths = archive.Images
	case models.CategoryThumbnails:
		paths = archive.Thumbnails
	default:
		return "", fmt.Errorf("category %s has no image preview", category)
	}

	if index < 0 || index >= len(paths) {
		return "", fmt.Errorf("image index out of range: %d of %d", index, len(paths))
	}

	data, err := os.ReadFile(paths[index])
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	return "data:" + imageMime(paths[index]) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func imageMime(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
