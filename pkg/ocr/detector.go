package ocr

import (
	"context"
	"image"
	"math"

	"github.com/orneryd/scanlate/pkg/engine"
)

// orientedRect is a detector-produced candidate region before cropping:
// an axis-aligned box plus a four-point oriented polygon and a mask
// activation used as a confidence proxy when the recognizer doesn't score.
type orientedRect struct {
	BBox           engine.BBox
	Polygon        [4]engine.Point
	MeanActivation float64
}

// Detector is the lightweight, quantized first stage of the hybrid shape:
// it produces a segmentation mask and extracts connected-component
// oriented rectangles padded by engine.RegionPadding.
type Detector interface {
	Name() string
	Warmup(ctx context.Context) error
	Detect(ctx context.Context, img *preparedImage) ([]orientedRect, error)
}

// newDetector constructs the hybrid shape's detector. On every platform
// and build it returns the coarse, dependency-free varianceDetector, which
// works directly on luminance variance; no native segmentation model is
// loaded and modelPath is not read.
func newDetector(modelPath string) (Detector, error) {
	return &varianceDetector{modelPath: modelPath}, nil
}

// varianceDetector is a CPU-only fallback: it treats any block of the
// image whose local luminance variance exceeds a threshold as "likely
// text" and merges adjacent blocks into rectangles. It never fails to
// load — the hybrid shape's detector stage has no external asset
// dependency in this fallback path — and exists so Shape B is exercised by
// tests without a vendored native detector library.
type varianceDetector struct {
	modelPath string
}

func (d *varianceDetector) Name() string { return "variance-detector" }

func (d *varianceDetector) Warmup(ctx context.Context) error { return nil }

const blockSize = 16

func (d *varianceDetector) Detect(ctx context.Context, img *preparedImage) ([]orientedRect, error) {
	bounds := img.rgb.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	type block struct{ x, y int; activation float64 }
	var active []block
	for by := 0; by < h; by += blockSize {
		for bx := 0; bx < w; bx += blockSize {
			act := blockActivation(img.rgb, bx, by, blockSize)
			if act > 0.15 {
				active = append(active, block{bx, by, act})
			}
		}
	}
	if len(active) == 0 {
		return nil, nil
	}

	// Merge adjacent active blocks row-by-row into rectangles; a simple
	// greedy scan is sufficient fidelity for the fallback path.
	var rects []orientedRect
	used := make([]bool, len(active))
	for i, b := range active {
		if used[i] {
			continue
		}
		minX, minY := b.x, b.y
		maxX, maxY := b.x+blockSize, b.y+blockSize
		sumAct, count := b.activation, 1
		used[i] = true
		for j := i + 1; j < len(active); j++ {
			if used[j] {
				continue
			}
			o := active[j]
			if o.x >= minX-blockSize && o.x <= maxX+blockSize && o.y >= minY-blockSize && o.y <= maxY+blockSize {
				used[j] = true
				if o.x < minX {
					minX = o.x
				}
				if o.y < minY {
					minY = o.y
				}
				if o.x+blockSize > maxX {
					maxX = o.x + blockSize
				}
				if o.y+blockSize > maxY {
					maxY = o.y + blockSize
				}
				sumAct += o.activation
				count++
			}
		}

		px, py := float64(minX)-engine.RegionPadding, float64(minY)-engine.RegionPadding
		pw := float64(maxX-minX) + 2*engine.RegionPadding
		ph := float64(maxY-minY) + 2*engine.RegionPadding
		if px < 0 {
			px = 0
		}
		if py < 0 {
			py = 0
		}
		bbox := engine.BBox{X: px, Y: py, Width: pw, Height: ph}
		rects = append(rects, orientedRect{
			BBox: bbox,
			Polygon: [4]engine.Point{
				{X: bbox.X, Y: bbox.Y},
				{X: bbox.X + bbox.Width, Y: bbox.Y},
				{X: bbox.X + bbox.Width, Y: bbox.Y + bbox.Height},
				{X: bbox.X, Y: bbox.Y + bbox.Height},
			},
			MeanActivation: sumAct / float64(count),
		})
	}
	return rects, nil
}

func blockActivation(img *image.RGBA, x0, y0, size int) float64 {
	bounds := img.Bounds()
	var sum, sumSq float64
	n := 0
	for y := y0; y < y0+size && y < bounds.Dy(); y++ {
		for x := x0; x < x0+size && x < bounds.Dx(); x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			sum += lum
			sumSq += lum * lum
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	// Normalize against the 16-bit channel range used by image/color.
	return math.Sqrt(math.Max(variance, 0)) / 65535.0
}
