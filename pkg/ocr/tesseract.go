package ocr

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/orneryd/scanlate/pkg/engine"
)

// tesseractRecognizer implements Recognizer over Tesseract via gosseract,
// grounded on wudi-pdfkit/ocr/tesseract/tesseract.go: one gosseract.Client
// per call (gosseract clients are not safe for concurrent reuse), crop
// before recognition when a region is given, extract per-word bounding
// boxes and average them into the reported confidence.
type tesseractRecognizer struct {
	tessdataPrefix string
	languages      []string
	mu             sync.Mutex // gosseract's underlying Tesseract handle is not goroutine-safe per client
}

func newTesseractRecognizer(tessdataPrefix string, languages []string) (*tesseractRecognizer, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &tesseractRecognizer{tessdataPrefix: tessdataPrefix, languages: languages}, nil
}

func (t *tesseractRecognizer) Name() string { return "tesseract" }

func (t *tesseractRecognizer) Warmup(ctx context.Context) error {
	_, err := t.Recognize(ctx, blankImage(64, 64))
	return err
}

// Recognize performs monolithic detection+recognition on the whole image
// (Shape A), or — when called by recognizeRegions — on a single already
// cropped region image (Shape B's recognition stage).
func (t *tesseractRecognizer) Recognize(ctx context.Context, img *preparedImage) ([]engine.Region, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.tessdataPrefix); err != nil {
			return nil, fmt.Errorf("tesseract: set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("tesseract: set languages: %w", err)
	}

	png, err := encodePNG(img.rgb)
	if err != nil {
		return nil, fmt.Errorf("tesseract: encode crop: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("tesseract: load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract: recognize: %w", err)
	}
	if text == "" {
		return nil, nil
	}

	words, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return []engine.Region{singleRegionFromText(text, img)}, nil
	}

	bbox, confidence := mergeWordBoxes(words)
	return []engine.Region{{
		Text:       text,
		Confidence: confidence,
		BBox:       bbox,
		Polygon:    polygonFromBBox(bbox),
	}}, nil
}

func singleRegionFromText(text string, img *preparedImage) engine.Region {
	bbox := engine.BBox{X: 0, Y: 0, Width: float64(img.rgb.Bounds().Dx()), Height: float64(img.rgb.Bounds().Dy())}
	return engine.Region{Text: text, Confidence: 0.5, BBox: bbox, Polygon: polygonFromBBox(bbox)}
}

func mergeWordBoxes(words []gosseract.BoundingBox) (engine.BBox, float32) {
	if len(words) == 0 {
		return engine.BBox{}, 0
	}
	minX, minY := words[0].Box.Min.X, words[0].Box.Min.Y
	maxX, maxY := words[0].Box.Max.X, words[0].Box.Max.Y
	var confSum float64
	for _, w := range words {
		if w.Box.Min.X < minX {
			minX = w.Box.Min.X
		}
		if w.Box.Min.Y < minY {
			minY = w.Box.Min.Y
		}
		if w.Box.Max.X > maxX {
			maxX = w.Box.Max.X
		}
		if w.Box.Max.Y > maxY {
			maxY = w.Box.Max.Y
		}
		confSum += w.Confidence
	}
	avgConf := float32(confSum/float64(len(words))) / 100.0
	return engine.BBox{
		X:      float64(minX),
		Y:      float64(minY),
		Width:  float64(maxX - minX),
		Height: float64(maxY - minY),
	}, avgConf
}

func polygonFromBBox(b engine.BBox) [4]engine.Point {
	return [4]engine.Point{
		{X: b.X, Y: b.Y},
		{X: b.X + b.Width, Y: b.Y},
		{X: b.X + b.Width, Y: b.Y + b.Height},
		{X: b.X, Y: b.Y + b.Height},
	}
}

// recognizeRegions crops each detector-produced rectangle from img and
// recognizes it with rec, sequentially — gosseract clients are created
// fresh per image so this is safe but not parallel, matching
// wudi-pdfkit's RecognizeBatch. The detector's mean mask activation is
// used as the confidence proxy when the recognizer doesn't score a region.
func recognizeRegions(ctx context.Context, rec Recognizer, img *preparedImage, rects []orientedRect) ([]engine.Region, error) {
	var out []engine.Region
	for _, r := range rects {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		crop := cropRegion(img, r.BBox)
		regions, err := rec.Recognize(ctx, crop)
		if err != nil {
			return nil, err
		}
		for _, region := range regions {
			// Translate the crop-local bbox back into the resized image's
			// coordinate system before postProcess maps resized -> original.
			region.BBox.X += r.BBox.X
			region.BBox.Y += r.BBox.Y
			for i := range region.Polygon {
				region.Polygon[i].X += r.BBox.X
				region.Polygon[i].Y += r.BBox.Y
			}
			if region.Confidence == 0 {
				region.Confidence = clamp01(r.MeanActivation)
			}
			out = append(out, region)
		}
	}
	return out, nil
}

func clamp01(v float64) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}

// cropRegion extracts the sub-image inside b, clamped to img's bounds,
// matching wudi-pdfkit's cropImage intersect-then-SubImage pattern.
func cropRegion(img *preparedImage, b engine.BBox) *preparedImage {
	bounds := img.rgb.Bounds()
	rect := image.Rect(int(b.X), int(b.Y), int(b.X+b.Width), int(b.Y+b.Height)).Intersect(bounds)
	if rect.Empty() {
		rect = bounds
	}
	sub := img.rgb.SubImage(rect).(*image.RGBA)
	return &preparedImage{rgb: sub, scale: img.scale, origW: img.origW, origH: img.origH}
}
