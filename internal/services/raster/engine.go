package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// pdfMagic is the signature checked before any decode attempt
var pdfMagic = []byte("%PDF")

var errPageTimeout = errors.New("page render timed out")

// Engine converts one page-document into an ordered sequence of encoded
// page images. It owns no persistent state: every resource it acquires
// is scoped to a single Render call.
type Engine struct {
	renderer Renderer
	config   *common.RasterConfig
	logger   arbor.ILogger
}

var _ interfaces.RasterEngine = (*Engine)(nil)

// NewEngine creates a rasterization engine backed by MuPDF
func NewEngine(logger arbor.ILogger, config *common.RasterConfig) *Engine {
	return NewEngineWithRenderer(logger, config, &fitzRenderer{})
}

// NewEngineWithRenderer creates an engine on a custom document renderer
func NewEngineWithRenderer(logger arbor.ILogger, config *common.RasterConfig, renderer Renderer) *Engine {
	return &Engine{
		renderer: renderer,
		config:   config,
		logger:   logger,
	}
}

type pageResult struct {
	page int
	img  image.Image
	err  error
}

// docWorker serializes all access to one document handle on a single
// goroutine. Document handles are not safe for concurrent use, so a
// render abandoned by timeout must never share a handle with the next
// page's render.
type docWorker struct {
	jobs    chan int
	results chan pageResult
}

// Render produces one encoded image per renderable page, in page order,
// or fails with one of the classified errors. A maxPages of zero or
// less falls back to the configured batch page cap. Individual bad
// pages are logged and skipped; they fail the document only when no
// page at all could be rendered.
func (e *Engine) Render(ctx context.Context, path string, maxPages int) (*models.RasterResult, error) {
	if maxPages <= 0 {
		maxPages = e.config.MaxPagesBatch
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, path)
	}

	doc, err := e.openWithRetry(ctx, data)
	if err != nil {
		if errors.Is(err, common.ErrRetryCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	pageCount := doc.PageCount()
	if pageCount == 0 {
		doc.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, path)
	}

	toRender := pageCount
	if toRender > maxPages {
		toRender = maxPages
	}

	// The worker owns the document handle from here on. Closing its
	// jobs channel tells it to release the handle once any in-flight
	// render has finished.
	worker := e.startWorker(doc, toRender)
	defer func() {
		if worker != nil {
			close(worker.jobs)
		}
	}()

	result := &models.RasterResult{PageCount: pageCount}
	for page := 1; page <= toRender; page++ {
		img, err := e.awaitPage(ctx, worker, page)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}

			e.logger.Warn().Err(err).Str("path", path).Int("page", page).Msg("Page render failed, skipping")

			if errors.Is(err, errPageTimeout) {
				// The abandoned worker is still rendering on the old
				// handle and will release it when that render returns.
				// Remaining pages need a fresh handle so a wedged page
				// cannot starve them.
				close(worker.jobs)
				worker = nil

				if page < toRender {
					reopened, openErr := e.renderer.Open(data)
					if openErr != nil {
						e.logger.Warn().Err(openErr).Str("path", path).Msg("Reopen after page timeout failed, stopping")
						break
					}
					worker = e.startWorker(reopened, toRender-page)
				}
			}
			continue
		}

		encoded, err := e.encodePage(img)
		if err != nil {
			e.logger.Warn().Err(err).Str("path", path).Int("page", page).Msg("Page encode failed, skipping")
			continue
		}

		result.Pages = append(result.Pages, encoded)
		result.Rendered = append(result.Rendered, page)
	}

	if len(result.Pages) == 0 {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("render cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s", ErrNoPagesRendered, path)
	}

	e.logger.Debug().
		Str("path", path).
		Int("pages", pageCount).
		Int("rendered", len(result.Pages)).
		Msg("Document rendered")

	return result, nil
}

// openWithRetry opens the document with bounded linear backoff. A
// partially-constructed handle is released by the renderer itself on a
// failed open.
func (e *Engine) openWithRetry(ctx context.Context, data []byte) (Document, error) {
	var doc Document

	retryConfig := common.RetryConfig{
		MaxAttempts: e.config.OpenAttempts,
		Delay:       e.config.OpenBackoff,
	}

	err := common.Retry(ctx, retryConfig, func() error {
		opened, err := e.renderer.Open(data)
		if err != nil {
			return err
		}
		doc = opened
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (e *Engine) startWorker(doc Document, buffer int) *docWorker {
	if buffer < 1 {
		buffer = 1
	}
	w := &docWorker{
		jobs:    make(chan int),
		results: make(chan pageResult, buffer),
	}
	go e.renderLoop(doc, w)
	return w
}

func (e *Engine) renderLoop(doc Document, w *docWorker) {
	defer doc.Close()

	for page := range w.jobs {
		width, height, err := doc.PageSize(page)
		if err != nil {
			w.results <- pageResult{page: page, err: err}
			continue
		}
		if width <= 0 || height <= 0 {
			w.results <- pageResult{page: page, err: fmt.Errorf("invalid page dimensions %.0fx%.0f", width, height)}
			continue
		}

		img, err := doc.RenderPage(page, e.scaleFor(width, height))
		w.results <- pageResult{page: page, img: img, err: err}
	}
}

// awaitPage submits one page to the worker and waits for its result,
// bounded by the per-page timeout
func (e *Engine) awaitPage(ctx context.Context, w *docWorker, page int) (image.Image, error) {
	timer := time.NewTimer(e.config.PageTimeout)
	defer timer.Stop()

	select {
	case w.jobs <- page:
	case <-timer.C:
		return nil, errPageTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-w.results:
		if res.err != nil {
			return nil, res.err
		}
		return res.img, nil
	case <-timer.C:
		return nil, errPageTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// scaleFor caps memory use on oversized pages while modestly upscaling
// small ones for legibility
func (e *Engine) scaleFor(width, height float64) float64 {
	long := width
	if height > long {
		long = height
	}

	scale := float64(e.config.TargetLongEdge) / long
	if scale < e.config.MinScale {
		scale = e.config.MinScale
	}
	if scale > e.config.MaxScale {
		scale = e.config.MaxScale
	}
	return scale
}

func (e *Engine) encodePage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.config.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	if buf.Len() < e.config.MinEncodedBytes {
		return nil, fmt.Errorf("degenerate encode: %d bytes", buf.Len())
	}
	return buf.Bytes(), nil
}
