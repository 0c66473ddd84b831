// Package ocr implements the OCR engine: detect text regions in an image,
// recognize each region, return regions with bounding polygons and
// confidences.
//
// Two internal shapes are permitted behind the same engine.OCREngine
// contract, standardizing the capability rather than the pipeline shape:
//
//   - Shape A (tesseract.go's tesseractRecognizer used directly): a single
//     recognizer performs detection and recognition end-to-end. Grounded
//     on wudi-pdfkit's ocr/tesseract package, which wraps
//     github.com/otiai10/gosseract/v2 — Tesseract itself is monolithic
//     (one call does layout analysis and OCR).
//   - Shape B (detector.go plus tesseract.go's recognizeRegions): a
//     lightweight detector produces candidate text rectangles, each is
//     cropped and recognized individually through the same Tesseract
//     recognizer. wudi-pdfkit's ocr.Engine/BatchEngine interfaces are the
//     contract this package's Engine narrows to a single recognize path.
package ocr

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orneryd/scanlate/pkg/engine"
)

// Shape selects the internal OCR pipeline.
type Shape string

const (
	ShapeMonolithic Shape = "monolithic"
	ShapeHybrid     Shape = "hybrid"
)

// Config configures Engine construction.
type Config struct {
	Name      string
	Version   string
	Shape     Shape
	ModelPath string // tessdata directory, or detector+recognizer asset dir for hybrid
	Languages []string
}

// Recognizer is the narrow contract both shapes satisfy: recognize text in
// a single pre-processed (RGB, resized) image region and return the region
// list plus its own warmup hook.
type Recognizer interface {
	Name() string
	Warmup(ctx context.Context) error
	Recognize(ctx context.Context, img *preparedImage) ([]engine.Region, error)
}

// Engine implements engine.OCREngine.
type Engine struct {
	cfg   Config
	ready atomic.Bool
	mu    sync.Mutex

	// Shape A
	mono Recognizer

	// Shape B
	detector   Detector
	recognizer Recognizer

	detectionTime   atomic.Int64 // nanoseconds, last sample
	recognitionTime atomic.Int64
}

var _ engine.OCREngine = (*Engine)(nil)

// New constructs an unloaded OCR engine for the configured shape.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Name() string    { return e.cfg.Name }
func (e *Engine) Version() string { return e.cfg.Version }

func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready.Load() {
		return nil
	}
	switch e.cfg.Shape {
	case ShapeHybrid:
		det, err := newDetector(e.cfg.ModelPath)
		if err != nil {
			return engine.NewError(engine.KindModelNotLoaded, err.Error())
		}
		rec, err := newTesseractRecognizer(e.cfg.ModelPath, e.cfg.Languages)
		if err != nil {
			return engine.NewError(engine.KindModelNotLoaded, err.Error())
		}
		e.detector = det
		e.recognizer = rec
	default:
		rec, err := newTesseractRecognizer(e.cfg.ModelPath, e.cfg.Languages)
		if err != nil {
			return engine.NewError(engine.KindModelNotLoaded, err.Error())
		}
		e.mono = rec
	}
	e.ready.Store(true)
	return nil
}

// Warmup runs one minimal request after load. The two hybrid stages have
// independent warmup.
func (e *Engine) Warmup(ctx context.Context) error {
	if !e.ready.Load() {
		return engine.NewError(engine.KindModelNotLoaded, "warmup requires a loaded engine")
	}
	blank := blankImage(64, 64)
	if e.cfg.Shape == ShapeHybrid {
		if err := e.detector.Warmup(ctx); err != nil {
			return err
		}
		return e.recognizer.Warmup(ctx)
	}
	_, err := e.mono.Recognize(ctx, blank)
	return err
}

func (e *Engine) IsReady() bool                        { return e.ready.Load() }
func (e *Engine) HealthCheck(ctx context.Context) bool  { return e.IsReady() }
func (e *Engine) SupportedLanguages() []string          { return e.cfg.Languages }

// Recognize implements the full pipeline: pre-process, dispatch to the
// configured shape, post-process.
func (e *Engine) Recognize(ctx context.Context, req engine.OCRRequest) (engine.OCRResult, error) {
	start := time.Now()
	if !e.ready.Load() {
		return engine.OCRResult{}, engine.NewError(engine.KindModelNotLoaded, "engine not loaded")
	}
	if len(req.ImageBytes) > engine.MaxImageBytes {
		return engine.OCRResult{}, engine.NewError(engine.KindInvalidArgument, "encoded image exceeds size ceiling")
	}

	img, err := prepareImage(req.ImageBytes)
	if err != nil {
		return engine.OCRResult{}, engine.NewError(engine.KindInvalidInput, err.Error())
	}

	var regions []engine.Region
	var detectDur, recogDur time.Duration
	if e.cfg.Shape == ShapeHybrid {
		dStart := time.Now()
		rects, err := e.detector.Detect(ctx, img)
		detectDur = time.Since(dStart)
		if err != nil {
			return engine.OCRResult{}, engine.Wrap(err)
		}
		rStart := time.Now()
		regions, err = recognizeRegions(ctx, e.recognizer, img, rects)
		recogDur = time.Since(rStart)
		if err != nil {
			return engine.OCRResult{}, engine.Wrap(err)
		}
	} else {
		rStart := time.Now()
		regions, err = e.mono.Recognize(ctx, img)
		recogDur = time.Since(rStart)
		if err != nil {
			return engine.OCRResult{}, engine.Wrap(err)
		}
	}

	regions = postProcess(regions, img.scale, img.origW, img.origH)

	return engine.OCRResult{
		RequestID:       req.RequestID,
		Success:         true,
		Regions:         regions,
		ProcessingTime:  time.Since(start),
		DetectionTime:   detectDur,
		RecognitionTime: recogDur,
		HasSplitTimings: e.cfg.Shape == ShapeHybrid,
		EngineName:      e.cfg.Name,
		EngineVersion:   e.cfg.Version,
	}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready.Store(false)
	return nil
}

// postProcess sorts regions by top edge ascending (tie-break left edge
// ascending), assigns line_index in that order, discards noise-sized
// regions, and maps coordinates back to the original image's coordinate
// system.
func postProcess(regions []engine.Region, scale float64, origW, origH int) []engine.Region {
	filtered := regions[:0]
	for _, r := range regions {
		if r.BBox.Width < engine.MinRegionDimension || r.BBox.Height < engine.MinRegionDimension {
			continue
		}
		r.BBox.X /= scale
		r.BBox.Y /= scale
		r.BBox.Width /= scale
		r.BBox.Height /= scale
		for i := range r.Polygon {
			r.Polygon[i].X /= scale
			r.Polygon[i].Y /= scale
		}
		if r.Confidence < 0 {
			r.Confidence = 0
		}
		if r.Confidence > 1 {
			r.Confidence = 1
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].BBox.Y != filtered[j].BBox.Y {
			return filtered[i].BBox.Y < filtered[j].BBox.Y
		}
		return filtered[i].BBox.X < filtered[j].BBox.X
	})
	for i := range filtered {
		filtered[i].LineIndex = i
	}
	return filtered
}
