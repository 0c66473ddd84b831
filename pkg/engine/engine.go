// Package engine defines the uniform contract every inference back-end
// implements, plus the shared request/result types that cross the RPC
// boundary on their way to a back-end.
package engine

import (
	"context"
	"time"
)

// Family distinguishes the two model families served by this process.
type Family string

const (
	FamilyMT  Family = "mt"
	FamilyOCR Family = "ocr"
)

// Engine is the contract every back-end satisfies regardless of family.
// The server runtime owns the single Engine instance for the lifetime of
// the process; engines are never swapped at runtime.
type Engine interface {
	// Name is a stable display name, e.g. "nllb-200-distilled-600M".
	Name() string
	// Version is a stable version string for the loaded weights.
	Version() string

	// Load is one-shot and idempotent after it first succeeds. Calling it
	// again on an already-loaded engine must not allocate additional
	// accelerator memory and must return the same ready state.
	Load(ctx context.Context) error
	// Warmup runs one minimal request per supported direction. Warmup
	// failures are logged by the caller but must never abort startup, so
	// Warmup returns an error only for the caller to log, not to act on.
	Warmup(ctx context.Context) error
	// IsReady is cheap and non-blocking; true only after Load succeeded.
	IsReady() bool
	// HealthCheck may be richer than IsReady; the default is to equal it.
	HealthCheck(ctx context.Context) bool
	// SupportedLanguages returns the closed, engine-owned enumeration of
	// client-facing language codes.
	SupportedLanguages() []string
}

// TranslationEngine is the machine-translation extension of Engine.
type TranslationEngine interface {
	Engine
	Translate(ctx context.Context, req TranslateRequest) (TranslateResult, error)
	TranslateBatch(ctx context.Context, reqs []TranslateRequest) ([]TranslateResult, error)
}

// OCREngine is the text-recognition extension of Engine.
type OCREngine interface {
	Engine
	Recognize(ctx context.Context, req OCRRequest) (OCRResult, error)
}

// TranslateRequest is a single translation request crossing the RPC
// boundary.
type TranslateRequest struct {
	RequestID  string
	SourceText string
	SourceLang string
	TargetLang string
	Options    map[string]string
}

// TranslateResult is the outcome of a translation request. Confidence is
// in [0,1], or the sentinel -1 meaning the engine does not score.
type TranslateResult struct {
	RequestID      string
	SourceText     string
	TranslatedText string
	SourceLang     string
	TargetLang     string
	EngineName     string
	EngineVersion  string
	Confidence     float32
	ProcessingTime time.Duration
	Success        bool
	Err            *WireError
	// Metadata echoes the request's Options back to the caller alongside
	// the result, so a caller that attached tracking fields to the request
	// gets them back without having to correlate by RequestID alone.
	Metadata map[string]string
}

// OCRRequest is a single recognition request crossing the RPC boundary.
type OCRRequest struct {
	RequestID         string
	ImageBytes        []byte
	PreferredLanguages []string
}

// Region is one detected and recognized text region. Bounding box and
// polygon coordinates are always in the original image's coordinate
// system.
type Region struct {
	Text       string
	Confidence float32
	BBox       BBox
	Polygon    [4]Point
	LineIndex  int
}

type BBox struct {
	X, Y, Width, Height float64
}

type Point struct {
	X, Y float64
}

// OCRResult is the outcome of an OCR request.
type OCRResult struct {
	RequestID         string
	Success           bool
	Regions           []Region
	ProcessingTime    time.Duration
	DetectionTime     time.Duration
	RecognitionTime   time.Duration
	HasSplitTimings   bool
	EngineName        string
	EngineVersion     string
	Err               *WireError
}

// MaxImageBytes is the fixed ceiling on encoded OCR image size.
const MaxImageBytes = 10 * 1024 * 1024

// MaxImageDimension is the longest-side pixel ceiling before inference;
// larger images are resized preserving aspect ratio.
const MaxImageDimension = 2048

// MinRegionDimension discards detected regions smaller than this on either
// side as noise.
const MinRegionDimension = 10.0

// RegionPadding is the constant padding applied to a detector's oriented
// rectangle before cropping in the hybrid OCR shape.
const RegionPadding = 5.0
