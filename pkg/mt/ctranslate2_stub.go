//go:build !cgo || (!darwin && !linux)

package mt

import "errors"

var errNotSupported = errors.New("local NMT inference not supported: build with CGO on linux or darwin")

type translator struct{}

func loadTranslator(modelPath string, gpuLayers int, computeType string) (*translator, error) {
	return nil, errNotSupported
}

type generateParams struct {
	BeamSize          int
	MaxDecodingLength int
	RepetitionPenalty float32
	NoRepeatNgramSize int
	LengthPenalty     float32
}

func (t *translator) tokenize(text string, maxTokens int) ([]int32, error) {
	return nil, errNotSupported
}

func (t *translator) generate(srcTokens []int32, targetPrefix string, p generateParams) ([]int32, float32, error) {
	return nil, 0, errNotSupported
}

func (t *translator) detokenize(tokens []int32) (string, error) {
	return "", errNotSupported
}

func (t *translator) reclaim() {}

func (t *translator) close() {}
