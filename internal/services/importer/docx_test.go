package importer

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildDocx assembles a minimal OOXML text document: one paragraph per
// entry of paragraphs, plus the given media files under word/media/.
func buildDocx(t *testing.T, paragraphs []string, media map[string][]byte) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>")
		escapeXML(&body, p)
		body.WriteString("</w:t></w:r></w:p>")
	}

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	writeZipEntry(t, zw, "word/document.xml", []byte(document))
	for name, data := range media {
		writeZipEntry(t, zw, "word/media/"+name, data)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func escapeXML(b *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
}

func writeZipEntry(t *testing.T, zw *zip.Writer, name string, data []byte) {
	t.Helper()
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
}

func TestDocTextParagraphOrder(t *testing.T) {
	data := buildDocx(t, []string{"第一段", "第二段", "第三段"}, nil)

	text, err := docText(data)
	if err != nil {
		t.Fatal(err)
	}
	want := "第一段\n第二段\n第三段\n"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestDocTextSkipsEmptyParagraphsAndNormalizes(t *testing.T) {
	data := buildDocx(t, []string{"指令编号：A-1", "", "　", "正文"}, nil)

	text, err := docText(data)
	if err != nil {
		t.Fatal(err)
	}
	want := "指令编号:A-1\n正文\n"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestDocTextLineBreakInsideParagraph(t *testing.T) {
	document := `<?xml version="1.0"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body><w:p><w:r><w:t>前半</w:t><w:br/><w:t>后半</w:t></w:r></w:p></w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	writeZipEntry(t, zw, "word/document.xml", []byte(document))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	text, err := docText(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if text != "前半\n后半\n" {
		t.Errorf("text = %q", text)
	}
}

func TestDocTextMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	writeZipEntry(t, zw, "word/styles.xml", []byte("<x/>"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := docText(buf.Bytes()); !errors.Is(err, errNoDocumentXML) {
		t.Errorf("err = %v, want errNoDocumentXML", err)
	}
}

func TestDocMedia(t *testing.T) {
	data := buildDocx(t, []string{"正文"}, map[string][]byte{
		"image1.png": []byte("png-bytes"),
		"image2.jpg": []byte("jpg-bytes"),
		"object.emf": []byte("emf-bytes"),
	})

	dir := t.TempDir()
	paths, err := docMedia(data, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("extracted %d files, want 2 (emf skipped): %v", len(paths), paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing extracted file %s: %v", p, err)
		}
		if filepath.Dir(p) != dir {
			t.Errorf("file %s outside target dir", p)
		}
	}
}

func TestDocMediaNameCollision(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		data := buildDocx(t, []string{"正文"}, map[string][]byte{
			"image1.png": []byte(fmt.Sprintf("copy-%d", i)),
		})
		paths, err := docMedia(data, dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(paths) != 1 {
			t.Fatalf("extracted %d files, want 1", len(paths))
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("dir holds %d files, want 2 distinct names", len(entries))
	}
}

func TestDocTextWithFields(t *testing.T) {
	data := buildDocx(t, []string{
		"某某工作指令",
		"指令编号：202512110007",
		"指令标题：专项清理工作提示",
		"下发时间：2025-12-11 09:30",
		"指令内容：请各单位对下列线索开展核查处置。",
		"核查完成后按程序上报处置结果材料。",
	}, nil)

	text, err := docText(data)
	if err != nil {
		t.Fatal(err)
	}
	fields := parseFields(text)

	if fields.InstructionNo != "202512110007" {
		t.Errorf("instruction no = %q", fields.InstructionNo)
	}
	if fields.Title != "专项清理工作提示" {
		t.Errorf("title = %q", fields.Title)
	}
	if fields.IssuedAt != "2025-12-11 09:30" {
		t.Errorf("issued at = %q", fields.IssuedAt)
	}
	want := "请各单位对下列线索开展核查处置。\n核查完成后按程序上报处置结果材料。"
	if fields.Content != want {
		t.Errorf("content = %q, want %q", fields.Content, want)
	}
}
