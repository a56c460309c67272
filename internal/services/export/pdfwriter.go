package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/colligo/internal/common"
)

// bundleFontFamily is the registration name for the configured UTF-8 font
const bundleFontFamily = "bundle"

// mmPerPixel converts CSS pixels (96 dpi) to millimetres for page layout
const mmPerPixel = 25.4 / 96.0

// docWriter renders markdown into a single A4 document. Sections are added
// incrementally so callers can interleave composition with progress
// reporting; Output finalizes the document.
type docWriter struct {
	pdf      *fpdf.Fpdf
	md       goldmark.Markdown
	logger   arbor.ILogger
	family   string
	baseSize float64

	imageMaxWidth  int
	imageMaxHeight int
	imageQuality   int
}

func newDocWriter(cfg *common.ExportConfig, logger arbor.ILogger) *docWriter {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)

	// The built-in fonts only cover Latin-1; a configured TTF carries the
	// CJK glyphs the directive text needs.
	family := "Arial"
	if cfg.FontPath != "" {
		pdf.AddUTF8Font(bundleFontFamily, "", cfg.FontPath)
		pdf.AddUTF8Font(bundleFontFamily, "B", cfg.FontPath)
		if pdf.Err() {
			logger.Warn().
				Str("font_path", cfg.FontPath).
				Str("error", pdf.Error().Error()).
				Msg("Failed to load bundle font, falling back to built-in")
			pdf.ClearError()
		} else {
			family = bundleFontFamily
		}
	}

	pdf.AddPage()
	pdf.SetFont(family, "", 10)

	return &docWriter{
		pdf:            pdf,
		md:             goldmark.New(),
		logger:         logger,
		family:         family,
		baseSize:       10,
		imageMaxWidth:  cfg.ImageMaxWidth,
		imageMaxHeight: cfg.ImageMaxHeight,
		imageQuality:   cfg.ImageQuality,
	}
}

// AddSection parses one markdown fragment and renders it at the current
// position.
func (w *docWriter) AddSection(markdown string) error {
	source := []byte(markdown)
	doc := w.md.Parser().Parse(text.NewReader(source))

	r := &docRenderer{writer: w, source: source}
	if err := ast.Walk(doc, r.walk); err != nil {
		return fmt.Errorf("failed to render section: %w", err)
	}
	if w.pdf.Err() {
		return fmt.Errorf("document writer error: %s", w.pdf.Error())
	}
	return nil
}

// Output finalizes the document and writes it
func (w *docWriter) Output(out io.Writer) error {
	if err := w.pdf.Output(out); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// docRenderer walks one parsed markdown fragment and drives the writer's
// fpdf state. Inline styling is tracked as flags so nested emphasis
// restores correctly.
type docRenderer struct {
	writer *docWriter
	source []byte

	bold      bool
	italic    bool
	inList    bool
	listLevel int
}

func (r *docRenderer) pdf() *fpdf.Fpdf { return r.writer.pdf }

func (r *docRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf().SetFont(r.writer.family, style, r.writer.baseSize)
}

func (r *docRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return r.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering && !r.inList {
			r.pdf().Ln(7)
		}
	case ast.KindText:
		if entering {
			r.pdf().Write(5, string(n.Text(r.source)))
		}
	case ast.KindEmphasis:
		return r.handleEmphasis(n.(*ast.Emphasis), entering)
	case ast.KindCodeSpan:
		return r.handleCodeSpan(n, entering)
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			r.renderCodeLines(n.Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindList:
		r.handleList(entering)
	case ast.KindListItem:
		if entering {
			indent := float64(r.listLevel) * 5.0
			r.pdf().Ln(5)
			r.pdf().SetX(r.leftMargin() + indent)
			r.pdf().Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			pageW, _ := r.pdf().GetPageSize()
			r.pdf().Ln(3)
			r.pdf().Line(r.leftMargin(), r.pdf().GetY(), pageW-r.leftMargin(), r.pdf().GetY())
			r.pdf().Ln(3)
		}
	case ast.KindImage:
		if entering {
			r.handleImage(n.(*ast.Image))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *docRenderer) leftMargin() float64 {
	left, _, _, _ := r.pdf().GetMargins()
	return left
}

func (r *docRenderer) handleHeading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf().Ln(6)
		size := 10.5
		switch n.Level {
		case 1:
			size = 15
		case 2:
			size = 12.5
		case 3:
			size = 11
		}
		r.pdf().SetFont(r.writer.family, "B", size)
	} else {
		r.pdf().Ln(6)
		r.updateFont()
	}
	return ast.WalkContinue, nil
}

func (r *docRenderer) handleEmphasis(n *ast.Emphasis, entering bool) (ast.WalkStatus, error) {
	if n.Level == 2 {
		r.bold = entering
	} else {
		r.italic = entering
	}
	r.updateFont()
	return ast.WalkContinue, nil
}

func (r *docRenderer) handleCodeSpan(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf().SetFont("Courier", "", r.writer.baseSize)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if textNode, ok := c.(*ast.Text); ok {
				r.pdf().Write(5, string(textNode.Segment.Value(r.source)))
			}
		}
	} else {
		r.updateFont()
	}
	return ast.WalkSkipChildren, nil
}

func (r *docRenderer) renderCodeLines(lines *text.Segments) {
	r.pdf().Ln(2)
	r.pdf().SetFont("Courier", "", 9)
	r.pdf().SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.pdf().MultiCell(0, 5, string(seg.Value(r.source)), "", "L", true)
	}
	r.pdf().SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf().Ln(2)
}

func (r *docRenderer) handleList(entering bool) {
	if entering {
		r.inList = true
		r.listLevel++
		return
	}
	r.listLevel--
	if r.listLevel == 0 {
		r.inList = false
		r.pdf().Ln(7)
	}
}

// handleImage fits the referenced image to the configured box, re-encodes
// it as JPEG and places it in the text flow. A missing or unreadable image
// is skipped, not fatal: the bundle is still useful without it.
func (r *docRenderer) handleImage(n *ast.Image) {
	path := string(n.Destination)
	if err := r.placeImage(path); err != nil {
		r.writer.logger.Warn().Err(err).
			Str("image", path).
			Msg("Skipping image in bundle document")
	}
}

func (r *docRenderer) placeImage(path string) error {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	fitted := imaging.Fit(src, r.writer.imageMaxWidth, r.writer.imageMaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(r.writer.imageQuality)); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	info := r.pdf().RegisterImageOptionsReader(path, fpdf.ImageOptions{ImageType: "JPG"}, &buf)
	if info == nil || r.pdf().Err() {
		err := r.pdf().Error()
		r.pdf().ClearError()
		return fmt.Errorf("failed to register image: %v", err)
	}

	bounds := fitted.Bounds()
	wMM := float64(bounds.Dx()) * mmPerPixel
	hMM := float64(bounds.Dy()) * mmPerPixel

	pageW, pageH := r.pdf().GetPageSize()
	left, top, right, bottom := r.pdf().GetMargins()
	maxW := pageW - left - right
	maxH := pageH - top - bottom
	if wMM > maxW {
		hMM *= maxW / wMM
		wMM = maxW
	}
	if hMM > maxH {
		wMM *= maxH / hMM
	}

	r.pdf().Ln(3)
	r.pdf().ImageOptions(path, -1, 0, wMM, 0, true, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
	r.pdf().Ln(3)
	return nil
}
