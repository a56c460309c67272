package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchDirLayout(t *testing.T) {
	dir := BatchDir("/data/staging", "batch_1756100000")
	assert.Equal(t, filepath.Join("/data/staging", "batches", "batch_1756100000"), dir)

	archiveDir := ArchiveDir("/data/staging", "batch_1756100000", "arc_aaa")
	assert.Equal(t, filepath.Join(dir, "archives", "arc_aaa"), archiveDir)
}

func TestSanitizeStem(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain ascii", "report.zip", "report"},
		{"chinese characters pass through", "核查12.zip", "核查12"},
		{"spaces and punctuation collapse", "my file (1).zip", "my_file__1_"},
		{"dashes and underscores kept", "a-b_c.docx", "a-b_c"},
		{"extension only", ".zip", "unnamed"},
		{"nested path uses base name", "dir/sub/附件.pdf", "附件"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeStem(tt.in))
		})
	}
}
