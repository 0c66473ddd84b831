package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	ximage "golang.org/x/image/draw"

	"github.com/orneryd/scanlate/pkg/bufpool"
	"github.com/orneryd/scanlate/pkg/engine"
)

// preparedImage is the pre-processed, RGB, size-bounded image plus the
// scale factor needed to map detected coordinates back to the original
// image.
type preparedImage struct {
	rgb          *image.RGBA
	scale        float64 // resized / original
	origW, origH int
}

// prepareImage decodes, converts to RGB, and resizes preserving aspect
// ratio if the longest side exceeds engine.MaxImageDimension, using a
// high-quality filter (CatmullRom, same family golang.org/x/image/draw
// ships for downscaling with minimal ringing).
func prepareImage(data []byte) (*preparedImage, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("malformed image: %w", err)
	}

	bounds := src.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	longest := origW
	if origH > longest {
		longest = origH
	}

	scale := 1.0
	targetW, targetH := origW, origH
	if longest > engine.MaxImageDimension {
		scale = float64(engine.MaxImageDimension) / float64(longest)
		targetW = int(float64(origW) * scale)
		targetH = int(float64(origH) * scale)
		if targetW < 1 {
			targetW = 1
		}
		if targetH < 1 {
			targetH = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	if scale == 1.0 {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	} else {
		ximage.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, ximage.Over, nil)
	}

	return &preparedImage{rgb: dst, scale: scale, origW: origW, origH: origH}, nil
}

func blankImage(w, h int) *preparedImage {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	white := color.RGBA{255, 255, 255, 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: white}, image.Point{}, draw.Src)
	return &preparedImage{rgb: img, scale: 1.0, origW: w, origH: h}
}

// encodePNG re-encodes a cropped RGBA region for handoff to a recognizer
// that consumes encoded bytes (e.g. gosseract's SetImageFromBytes).
func encodePNG(img image.Image) ([]byte, error) {
	buf := bufpool.GetByteBuffer()
	w := bytes.NewBuffer(buf)
	if err := png.Encode(w, img); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

var _ = jpeg.DefaultQuality // keep image/jpeg registered for image.Decode
