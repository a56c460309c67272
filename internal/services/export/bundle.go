package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// bundleEntry pairs one projected archive with the descriptor bits that do
// not live on the archive itself.
type bundleEntry struct {
	archive            models.Archive
	includeOriginalZip bool
}

// WriteBundle generates the bundle document: a per-archive summary with
// fields, directive text and inline images, followed by the selected
// non-inline assets attached to the file when embedding is on. A nil
// selection means "build the descriptor from stored state first".
func (s *Service) WriteBundle(ctx context.Context, batchID string, selection *models.BundleSelection, embedFiles bool, outputPath string) (string, error) {
	batch, err := s.storage.BatchStorage().GetBatch(ctx, batchID)
	if err != nil {
		return "", fmt.Errorf("failed to load batch: %w", err)
	}

	if selection == nil {
		selection, err = s.BuildBundleSelection(ctx, batchID)
		if err != nil {
			return "", err
		}
	}

	var entries []bundleEntry
	for i := range selection.Archives {
		archSel := &selection.Archives[i]
		if !archSel.Include {
			continue
		}
		archive := batch.FindArchive(archSel.ArchiveID)
		if archive == nil {
			continue
		}
		entries = append(entries, bundleEntry{
			archive:            projectArchive(archive, archSel),
			includeOriginalZip: archSel.IncludeOriginalZip,
		})
	}
	if len(entries) == 0 {
		return "", ErrNoArchivesSelected
	}

	if outputPath == "" {
		outputPath = filepath.Join(s.config.Storage.Filesystem.Exports,
			time.Now().Format("汇总文档_20060102_150405.pdf"))
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	total := len(entries)
	s.publish(ctx, interfaces.EventExportBundleProgress,
		models.NewProgressEvent(models.OperationExportBundle, 0, total, "准备数据", "Preparing bundle data"))

	writer := newDocWriter(&s.config.Export, s.logger)
	if err := writer.AddSection("# 汇总文档\n"); err != nil {
		return "", err
	}

	var attachments []string
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		entry := &entries[i]

		s.publish(ctx, interfaces.EventExportBundleProgress,
			models.NewProgressEvent(models.OperationExportBundle, i, total, "生成文档",
				fmt.Sprintf("Composing section for %s", entry.archive.Filename)))

		if err := writer.AddSection(composeArchiveSection(entry)); err != nil {
			return "", fmt.Errorf("failed to render section for %s: %w", entry.archive.ID, err)
		}

		if embedFiles {
			attachments = append(attachments, s.collectAttachments(entry)...)
		}

		s.publish(ctx, interfaces.EventExportBundleProgress,
			models.NewProgressEvent(models.OperationExportBundle, i+1, total, "生成文档",
				fmt.Sprintf("Rendered section for %s", entry.archive.Filename)))
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create bundle file: %w", err)
	}
	if err := writer.Output(out); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close bundle file: %w", err)
	}

	if len(attachments) > 0 {
		s.publish(ctx, interfaces.EventExportBundleProgress,
			models.NewProgressEvent(models.OperationExportBundle, total, total, "嵌入附件",
				fmt.Sprintf("Attaching %d files", len(attachments))))
		if err := s.attachFiles(outputPath, attachments); err != nil {
			return "", err
		}
	}

	s.publish(ctx, interfaces.EventExportBundleProgress,
		models.CompletedEvent(models.OperationExportBundle,
			fmt.Sprintf("exported %d archives, %d attachments", total, len(attachments))))

	s.logger.Info().
		Str("batch_id", batchID).
		Int("archives", total).
		Int("attachments", len(attachments)).
		Str("output", outputPath).
		Msg("Bundle export finished")

	return outputPath, nil
}

// collectAttachments gathers the non-inline assets of one entry, skipping
// anything over the configured size cap.
func (s *Service) collectAttachments(entry *bundleEntry) []string {
	var candidates []string
	candidates = append(candidates, entry.archive.Videos...)
	candidates = append(candidates, entry.archive.Spreadsheets...)
	candidates = append(candidates, entry.archive.PageDocs...)
	if entry.includeOriginalZip && entry.archive.StoredPath != "" {
		candidates = append(candidates, entry.archive.StoredPath)
	}

	maxBytes := s.config.Export.MaxAttachmentMB * 1024 * 1024
	var out []string
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Attachment missing, skipping")
			continue
		}
		if maxBytes > 0 && info.Size() > maxBytes {
			s.logger.Warn().
				Str("path", path).
				Int64("size", info.Size()).
				Int64("limit", maxBytes).
				Msg("Attachment over size limit, skipping")
			continue
		}
		out = append(out, path)
	}
	return out
}

// attachFiles embeds the files into the finished document. Attachment names
// are the file basenames, so colliding basenames are copied to unique names
// first.
func (s *Service) attachFiles(pdfPath string, files []string) error {
	unique, cleanup, err := uniqueAttachmentPaths(files)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return err
	}
	if err := api.AddAttachmentsFile(pdfPath, "", unique, false, nil); err != nil {
		return fmt.Errorf("failed to attach files to bundle: %w", err)
	}
	return nil
}

// uniqueAttachmentPaths deduplicates attachment basenames. Files whose
// basename is already taken are copied into a scratch directory under a
// numbered name; the returned cleanup removes those copies.
func uniqueAttachmentPaths(files []string) ([]string, func(), error) {
	seen := make(map[string]bool, len(files))
	var out []string
	var scratch string
	cleanup := func() {
		if scratch != "" {
			os.RemoveAll(scratch)
		}
	}

	for _, path := range files {
		base := filepath.Base(path)
		if !seen[base] {
			seen[base] = true
			out = append(out, path)
			continue
		}

		if scratch == "" {
			dir, err := os.MkdirTemp("", "colligo-attach-")
			if err != nil {
				return out, cleanup, fmt.Errorf("failed to create scratch directory: %w", err)
			}
			scratch = dir
		}

		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		var renamed string
		for n := 2; ; n++ {
			renamed = fmt.Sprintf("%s_%d%s", stem, n, ext)
			if !seen[renamed] {
				break
			}
		}

		copied := filepath.Join(scratch, renamed)
		if err := copyFile(path, copied); err != nil {
			return out, cleanup, fmt.Errorf("failed to stage attachment copy: %w", err)
		}
		seen[renamed] = true
		out = append(out, copied)
	}
	return out, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// composeArchiveSection builds the markdown for one archive: fields,
// directive text, inline images, supplementary documents and the
// attachment list, closed by a separator rule.
func composeArchiveSection(entry *bundleEntry) string {
	archive := &entry.archive
	var b strings.Builder

	heading := strings.TrimSpace(archive.Fields.InstructionNo)
	if heading == "" {
		heading = archive.Filename
	}
	fmt.Fprintf(&b, "## %s\n\n", heading)

	writeFieldLine(&b, "指令编号", archive.Fields.InstructionNo)
	writeFieldLine(&b, "指令标题", archive.Fields.Title)
	writeFieldLine(&b, "下发时间", archive.Fields.IssuedAt)

	if content := strings.TrimSpace(archive.Fields.Content); content != "" {
		b.WriteString("**指令内容:**\n\n")
		writeTextBlock(&b, content)
	}

	for _, img := range archive.Images {
		writeImageRef(&b, img)
	}
	for _, img := range archive.Thumbnails {
		writeImageRef(&b, img)
	}

	for i := range archive.Documents {
		doc := &archive.Documents[i]
		fmt.Fprintf(&b, "### %s\n\n", doc.Name)
		if text := strings.TrimSpace(doc.FullText); text != "" {
			writeTextBlock(&b, text)
		}
		for _, img := range doc.Images {
			writeImageRef(&b, img)
		}
	}

	b.WriteString("**附件清单:**\n\n")
	listed := 0
	for _, path := range archive.Videos {
		fmt.Fprintf(&b, "- %s\n", filepath.Base(path))
		listed++
	}
	for _, path := range archive.Spreadsheets {
		fmt.Fprintf(&b, "- %s\n", filepath.Base(path))
		listed++
	}
	for _, path := range archive.PageDocs {
		fmt.Fprintf(&b, "- %s\n", filepath.Base(path))
		listed++
	}
	if entry.includeOriginalZip {
		fmt.Fprintf(&b, "- %s\n", archive.Filename)
		listed++
	}
	if listed == 0 {
		b.WriteString("- （无）\n")
	}

	b.WriteString("\n---\n")
	return b.String()
}

// writeFieldLine emits one labelled field as its own paragraph so each
// lands on its own line in the rendered document.
func writeFieldLine(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "**%s:** %s\n\n", label, strings.TrimSpace(value))
}

// writeTextBlock emits multi-line text one paragraph per line, preserving
// the source's line structure.
func writeTextBlock(b *strings.Builder, text string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n\n")
	}
}

// writeImageRef emits an image reference. The angle-bracket form keeps
// destinations with spaces parseable.
func writeImageRef(b *strings.Builder, path string) {
	fmt.Fprintf(b, "![](<%s>)\n\n", path)
}
