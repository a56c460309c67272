package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
)

type fakeDoc struct {
	pages  int
	size   func(page int) (float64, float64, error)
	render func(page int) (image.Image, error)
	closed atomic.Bool
}

func (d *fakeDoc) PageCount() int { return d.pages }

func (d *fakeDoc) PageSize(page int) (float64, float64, error) {
	if d.size != nil {
		return d.size(page)
	}
	return 600, 800, nil
}

func (d *fakeDoc) RenderPage(page int, scale float64) (image.Image, error) {
	if d.render != nil {
		return d.render(page)
	}
	return image.NewRGBA(image.Rect(0, 0, 60, 80)), nil
}

func (d *fakeDoc) Close() error {
	d.closed.Store(true)
	return nil
}

type fakeRenderer struct {
	opens   int
	openErr error
	newDoc  func() *fakeDoc
	docs    []*fakeDoc
}

func (r *fakeRenderer) Open(data []byte) (Document, error) {
	r.opens++
	if r.openErr != nil {
		return nil, r.openErr
	}
	doc := r.newDoc()
	r.docs = append(r.docs, doc)
	return doc, nil
}

func testConfig() *common.RasterConfig {
	return &common.RasterConfig{
		MaxPagesBatch:   20,
		TargetLongEdge:  1200,
		MinScale:        1.0,
		MaxScale:        2.0,
		PageTimeout:     100 * time.Millisecond,
		OpenAttempts:    3,
		OpenBackoff:     5 * time.Millisecond,
		JPEGQuality:     85,
		MinEncodedBytes: 100,
	}
}

func writeSource(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitClosed(t *testing.T, docs ...*fakeDoc) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for _, d := range docs {
		for !d.closed.Load() {
			if time.Now().After(deadline) {
				t.Fatal("document handle was not released")
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestRenderPageOrder(t *testing.T) {
	renderer := &fakeRenderer{newDoc: func() *fakeDoc { return &fakeDoc{pages: 5} }}
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), renderer)
	path := writeSource(t, []byte("%PDF-1.4 body"))

	result, err := engine.Render(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if result.PageCount != 5 {
		t.Errorf("Expected page count 5, got %d", result.PageCount)
	}
	if len(result.Pages) != 5 {
		t.Fatalf("Expected 5 rendered pages, got %d", len(result.Pages))
	}
	for i, want := range []int{1, 2, 3, 4, 5} {
		if result.Rendered[i] != want {
			t.Fatalf("Expected rendered order [1 2 3 4 5], got %v", result.Rendered)
		}
	}
	for i, page := range result.Pages {
		if len(page) < 2 || page[0] != 0xFF || page[1] != 0xD8 {
			t.Errorf("Page %d is not JPEG encoded", i+1)
		}
	}

	waitClosed(t, renderer.docs...)
}

func TestRenderTimedOutPageIsSkipped(t *testing.T) {
	renderer := &fakeRenderer{
		newDoc: func() *fakeDoc {
			return &fakeDoc{
				pages: 5,
				render: func(page int) (image.Image, error) {
					if page == 3 {
						time.Sleep(400 * time.Millisecond)
					}
					return image.NewRGBA(image.Rect(0, 0, 60, 80)), nil
				},
			}
		},
	}
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), renderer)
	path := writeSource(t, []byte("%PDF-1.4 body"))

	result, err := engine.Render(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(result.Rendered) != 4 {
		t.Fatalf("Expected 4 rendered pages, got %v", result.Rendered)
	}
	for i, want := range []int{1, 2, 4, 5} {
		if result.Rendered[i] != want {
			t.Fatalf("Expected rendered order [1 2 4 5], got %v", result.Rendered)
		}
	}
	if renderer.opens != 2 {
		t.Errorf("Expected a reopen after the timed-out page, got %d opens", renderer.opens)
	}

	// Both handles are released once the abandoned render returns
	waitClosed(t, renderer.docs...)
}

func TestRenderEmptySourceNoRetry(t *testing.T) {
	renderer := &fakeRenderer{newDoc: func() *fakeDoc { return &fakeDoc{pages: 1} }}
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), renderer)
	path := writeSource(t, []byte{})

	_, err := engine.Render(context.Background(), path, 0)
	if !errors.Is(err, ErrEmptySource) {
		t.Fatalf("Expected ErrEmptySource, got %v", err)
	}
	if renderer.opens != 0 {
		t.Errorf("Expected no open attempts for empty source, got %d", renderer.opens)
	}
}

func TestRenderInvalidFormatNoDecode(t *testing.T) {
	renderer := &fakeRenderer{newDoc: func() *fakeDoc { return &fakeDoc{pages: 1} }}
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), renderer)
	path := writeSource(t, []byte("PK\x03\x04 this is a zip"))

	_, err := engine.Render(context.Background(), path, 0)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Expected ErrInvalidFormat, got %v", err)
	}
	if renderer.opens != 0 {
		t.Errorf("Expected no decode attempt for bad signature, got %d opens", renderer.opens)
	}
}

func TestRenderDecodeFailedAfterRetries(t *testing.T) {
	renderer := &fakeRenderer{openErr: fmt.Errorf("corrupt xref table")}
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), renderer)
	path := writeSource(t, []byte("%PDF-1.4 body"))

	start := time.Now()
	_, err := engine.Render(context.Background(), path, 0)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("Expected ErrDecodeFailed, got %v", err)
	}
	if renderer.opens != 3 {
		t.Errorf("Expected exactly 3 open attempts, got %d", renderer.opens)
	}
	// Linear backoff: 1x + 2x the base delay between the three attempts
	if minimum := 3 * 5 * time.Millisecond; elapsed < minimum {
		t.Errorf("Expected at least %v of backoff, finished in %v", minimum, elapsed)
	}
}

func TestRenderEmptyDocument(t *testing.T) {
	renderer := &fakeRenderer{newDoc: func() *fakeDoc { return &fakeDoc{pages: 0} }}
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), renderer)
	path := writeSource(t, []byte("%PDF-1.4 body"))

	_, err := engine.Render(context.Background(), path, 0)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("Expected ErrEmptyDocument, got %v", err)
	}
	if len(renderer.docs) != 1 || !renderer.docs[0].closed.Load() {
		t.Error("Expected the zero-page handle to be closed")
	}
}

func TestRenderNoPagesRendered(t *testing.T) {
	renderer := &fakeRenderer{
		newDoc: func() *fakeDoc {
			return &fakeDoc{
				pages: 3,
				size:  func(page int) (float64, float64, error) { return 0, 0, nil },
			}
		},
	}
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), renderer)
	path := writeSource(t, []byte("%PDF-1.4 body"))

	_, err := engine.Render(context.Background(), path, 0)
	if !errors.Is(err, ErrNoPagesRendered) {
		t.Fatalf("Expected ErrNoPagesRendered, got %v", err)
	}
}

func TestRenderDegenerateEncodeIsPageFailure(t *testing.T) {
	config := testConfig()
	config.MinEncodedBytes = 1 << 20

	renderer := &fakeRenderer{newDoc: func() *fakeDoc { return &fakeDoc{pages: 2} }}
	engine := NewEngineWithRenderer(arbor.NewLogger(), config, renderer)
	path := writeSource(t, []byte("%PDF-1.4 body"))

	_, err := engine.Render(context.Background(), path, 0)
	if !errors.Is(err, ErrNoPagesRendered) {
		t.Fatalf("Expected ErrNoPagesRendered when every encode is degenerate, got %v", err)
	}
}

func TestRenderMaxPagesCap(t *testing.T) {
	renderer := &fakeRenderer{newDoc: func() *fakeDoc { return &fakeDoc{pages: 10} }}
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), renderer)
	path := writeSource(t, []byte("%PDF-1.4 body"))

	result, err := engine.Render(context.Background(), path, 3)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result.PageCount != 10 {
		t.Errorf("Expected reported page count 10, got %d", result.PageCount)
	}
	if len(result.Rendered) != 3 {
		t.Fatalf("Expected 3 rendered pages under the cap, got %v", result.Rendered)
	}
}

func TestRenderCancelledContext(t *testing.T) {
	renderer := &fakeRenderer{newDoc: func() *fakeDoc { return &fakeDoc{pages: 5} }}
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), renderer)
	path := writeSource(t, []byte("%PDF-1.4 body"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Render(ctx, path, 0)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if !errors.Is(err, common.ErrRetryCancelled) && !errors.Is(err, context.Canceled) {
		t.Errorf("Expected a cancellation error, got %v", err)
	}
}

func TestScaleClamp(t *testing.T) {
	engine := NewEngineWithRenderer(arbor.NewLogger(), testConfig(), &fakeRenderer{})

	tests := []struct {
		name   string
		width  float64
		height float64
		want   float64
	}{
		{"portrait page upscaled", 600, 800, 1.5},
		{"oversized page clamped to min", 2400, 3000, 1.0},
		{"tiny page clamped to max", 100, 50, 2.0},
		{"long edge at target", 600, 1200, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.scaleFor(tt.width, tt.height); got != tt.want {
				t.Errorf("scaleFor(%v, %v) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}
