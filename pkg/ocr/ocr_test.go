package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/scanlate/pkg/engine"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRecognizeRejectsOversizedImageWithoutDecoding(t *testing.T) {
	e := New(Config{Name: "ocr", Shape: ShapeMonolithic})
	e.ready.Store(true)

	oversized := make([]byte, engine.MaxImageBytes+1)
	_, err := e.Recognize(context.Background(), engine.OCRRequest{ImageBytes: oversized})
	require.Error(t, err)
	var ee *engine.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, engine.KindInvalidArgument, ee.Kind)
}

func TestRecognizeFailsBeforeLoad(t *testing.T) {
	e := New(Config{Name: "ocr", Shape: ShapeMonolithic})
	_, err := e.Recognize(context.Background(), engine.OCRRequest{ImageBytes: encodeTestPNG(t, 32, 32)})
	require.Error(t, err)
	var ee *engine.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, engine.KindModelNotLoaded, ee.Kind)
}

func TestPostProcessDiscardsNoiseRegionsAndAssignsLineIndex(t *testing.T) {
	regions := []engine.Region{
		{Text: "ok", BBox: engine.BBox{X: 0, Y: 20, Width: 50, Height: 20}},
		{Text: "tiny", BBox: engine.BBox{X: 0, Y: 0, Width: 2, Height: 2}},
		{Text: "first-line", BBox: engine.BBox{X: 10, Y: 0, Width: 50, Height: 20}},
	}
	out := postProcess(regions, 1.0, 100, 100)
	require.Len(t, out, 2)
	assert.Equal(t, "first-line", out[0].Text)
	assert.Equal(t, 0, out[0].LineIndex)
	assert.Equal(t, "ok", out[1].Text)
	assert.Equal(t, 1, out[1].LineIndex)
}

func TestPostProcessMapsCoordinatesBackToOriginalImage(t *testing.T) {
	// A region detected in a 2x downscaled image should double back to
	// original-image coordinates (spec.md §8 "Coordinate round-trip").
	regions := []engine.Region{
		{Text: "x", BBox: engine.BBox{X: 10, Y: 10, Width: 20, Height: 20}},
	}
	out := postProcess(regions, 0.5, 4096, 4096)
	require.Len(t, out, 1)
	assert.Equal(t, 20.0, out[0].BBox.X)
	assert.Equal(t, 20.0, out[0].BBox.Y)
	assert.Equal(t, 40.0, out[0].BBox.Width)
	assert.Equal(t, 40.0, out[0].BBox.Height)
}

func TestPostProcessClampsConfidenceToUnitRange(t *testing.T) {
	regions := []engine.Region{
		{BBox: engine.BBox{X: 0, Y: 0, Width: 50, Height: 50}, Confidence: 1.5},
		{BBox: engine.BBox{X: 0, Y: 100, Width: 50, Height: 50}, Confidence: -0.5},
	}
	out := postProcess(regions, 1.0, 200, 200)
	require.Len(t, out, 2)
	assert.Equal(t, float32(1.0), out[0].Confidence)
	assert.Equal(t, float32(0.0), out[1].Confidence)
}

func TestPrepareImageRescalesOversizedLongestSide(t *testing.T) {
	img, err := prepareImage(encodeTestPNG(t, 4096, 2048))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.rgb.Bounds().Dx(), engine.MaxImageDimension)
	assert.Equal(t, 4096, img.origW)
	assert.Equal(t, 2048, img.origH)
	assert.InDelta(t, float64(engine.MaxImageDimension)/4096.0, img.scale, 1e-9)
}

func TestPrepareImageLeavesSmallImageUnscaled(t *testing.T) {
	img, err := prepareImage(encodeTestPNG(t, 64, 32))
	require.NoError(t, err)
	assert.Equal(t, 1.0, img.scale)
	assert.Equal(t, 64, img.rgb.Bounds().Dx())
}

func TestVarianceDetectorFindsNothingOnBlankImage(t *testing.T) {
	d := &varianceDetector{}
	rects, err := d.Detect(context.Background(), blankImage(64, 64))
	require.NoError(t, err)
	assert.Empty(t, rects)
}
