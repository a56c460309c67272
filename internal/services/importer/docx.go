package importer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

const wordMLNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var errNoDocumentXML = errors.New("document archive has no word/document.xml")

// docText extracts the paragraph text of an OOXML text document, one line
// per paragraph in document order. Explicit line breaks inside a paragraph
// become newlines; empty paragraphs are dropped.
func docText(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open document archive: %w", err)
	}

	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			payload, err := readEntry(f)
			if err != nil {
				return "", fmt.Errorf("failed to read word/document.xml: %w", err)
			}
			return extractParagraphs(payload)
		}
	}
	return "", errNoDocumentXML
}

// extractParagraphs walks the document XML token stream collecting the
// text runs of each paragraph. Only wordprocessingml elements count, so
// drawing and math content inside a paragraph does not leak into the text.
func extractParagraphs(doc []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var out strings.Builder
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordMLNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = inParagraph
			case "br", "cr":
				if inParagraph {
					current.WriteByte('\n')
				}
			case "tab":
				if inParagraph {
					current.WriteByte('\t')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordMLNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				if !inParagraph {
					continue
				}
				inParagraph = false
				line := normalizeText(current.String())
				if strings.TrimSpace(line) != "" {
					out.WriteString(strings.TrimRightFunc(line, unicode.IsSpace))
					out.WriteByte('\n')
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return out.String(), nil
}

// docMedia extracts the embedded images of a text document (word/media/*)
// to dir, in archive order, and returns the paths written.
func docMedia(data []byte, dir string) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open document archive: %w", err)
	}

	var out []string
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, "word/media/") {
			continue
		}
		lower := strings.ToLower(f.Name)
		if !strings.HasSuffix(lower, ".png") && !strings.HasSuffix(lower, ".jpg") &&
			!strings.HasSuffix(lower, ".jpeg") && !strings.HasSuffix(lower, ".gif") {
			continue
		}

		entry := namedEntry{file: f, name: filepath.Base(f.Name)}
		path, err := extractEntry(&entry, dir)
		if err != nil {
			return out, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		out = append(out, path)
	}
	return out, nil
}
