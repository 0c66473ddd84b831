//go:build cgo && (darwin || linux)

// Package mt implements the translation engine: tokenize → generate →
// detokenize over a quantized encoder-decoder sequence-to-sequence model.
//
// The CGO binding pattern is adapted from gittool-Mimir's
// pkg/localllm/llama.go: an embedded C shim around a vendored static
// library, platform- and accelerator-specific #cgo LDFLAGS, mutex-guarded
// Go wrapper, and an explicit reclamation call on a completion counter.
// Unlike llama.go's decoder-only embedding model, translation needs a
// quantized encoder-decoder runtime with beam search, repetition penalty,
// and an int8/float16 "compute type" knob — the CTranslate2 C++ inference
// engine is the real-world tool built for exactly that combination (its
// Translator class takes beam_size, repetition_penalty,
// no_repeat_ngram_size, length_penalty, max_decoding_length, and a
// compute_type string), so the shim below wraps CTranslate2's C API instead
// of llama.cpp's.
package mt

/*
#cgo CFLAGS: -I${SRCDIR}/lib/ctranslate2/include
#cgo linux,amd64,cuda LDFLAGS: -L${SRCDIR}/lib/ctranslate2 -lctranslate2_linux_amd64_cuda -lcudart -lm -lstdc++ -lpthread
#cgo linux,amd64,!cuda LDFLAGS: -L${SRCDIR}/lib/ctranslate2 -lctranslate2_linux_amd64 -lm -lstdc++ -lpthread
#cgo linux,arm64 LDFLAGS: -L${SRCDIR}/lib/ctranslate2 -lctranslate2_linux_arm64 -lm -lstdc++ -lpthread
#cgo darwin,arm64 LDFLAGS: -L${SRCDIR}/lib/ctranslate2 -lctranslate2_darwin_arm64 -lm -lc++ -framework Accelerate
#cgo darwin,amd64 LDFLAGS: -L${SRCDIR}/lib/ctranslate2 -lctranslate2_darwin_amd64 -lm -lc++ -framework Accelerate

#include <stdlib.h>
#include <string.h>
#include "ctranslate2_shim.h"
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// translator wraps a loaded CTranslate2 model handle.
type translator struct {
	handle *C.ct2_translator_t
	dims   int
}

func loadTranslator(modelPath string, gpuLayers int, computeType string) (*translator, error) {
	cPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cPath))
	cCompute := C.CString(computeType)
	defer C.free(unsafe.Pointer(cCompute))

	h := C.ct2_translator_load(cPath, cCompute, C.int(gpuLayers))
	if h == nil {
		return nil, fmt.Errorf("ctranslate2: failed to load model at %s", modelPath)
	}
	return &translator{handle: h}, nil
}

// tokenize converts text to model-internal token ids using the model's own
// sentencepiece/BPE vocabulary.
func (t *translator) tokenize(text string, maxTokens int) ([]int32, error) {
	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))

	tokens := make([]C.int32_t, maxTokens)
	n := C.ct2_tokenize(t.handle, cText, C.int(len(text)), (*C.int32_t)(unsafe.Pointer(&tokens[0])), C.int(maxTokens))
	if n < 0 {
		return nil, fmt.Errorf("ctranslate2: tokenization failed")
	}
	out := make([]int32, int(n))
	for i := range out {
		out[i] = int32(tokens[i])
	}
	return out, nil
}

// generateParams mirrors CTranslate2's Translator.translate_batch options.
type generateParams struct {
	BeamSize          int
	MaxDecodingLength int
	RepetitionPenalty float32
	NoRepeatNgramSize int
	LengthPenalty     float32
}

// generate runs the encoder-decoder with a target-language prefix and
// returns the decoded output token ids.
func (t *translator) generate(srcTokens []int32, targetPrefix string, p generateParams) ([]int32, float32, error) {
	cPrefix := C.CString(targetPrefix)
	defer C.free(unsafe.Pointer(cPrefix))

	cSrc := make([]C.int32_t, len(srcTokens))
	for i, tok := range srcTokens {
		cSrc[i] = C.int32_t(tok)
	}
	var srcPtr *C.int32_t
	if len(cSrc) > 0 {
		srcPtr = (*C.int32_t)(unsafe.Pointer(&cSrc[0]))
	}

	outTokens := make([]C.int32_t, p.MaxDecodingLength)
	var score C.float
	n := C.ct2_translate(
		t.handle,
		srcPtr, C.int(len(srcTokens)),
		cPrefix,
		C.int(p.BeamSize),
		C.int(p.MaxDecodingLength),
		C.float(p.RepetitionPenalty),
		C.int(p.NoRepeatNgramSize),
		C.float(p.LengthPenalty),
		(*C.int32_t)(unsafe.Pointer(&outTokens[0])), C.int(len(outTokens)),
		&score,
	)
	if n < 0 {
		return nil, 0, fmt.Errorf("ctranslate2: generation failed (code %d)", n)
	}
	out := make([]int32, int(n))
	for i := range out {
		out[i] = int32(outTokens[i])
	}
	return out, float32(score), nil
}

func (t *translator) detokenize(tokens []int32) (string, error) {
	cTokens := make([]C.int32_t, len(tokens))
	for i, tok := range tokens {
		cTokens[i] = C.int32_t(tok)
	}
	var ptr *C.int32_t
	if len(cTokens) > 0 {
		ptr = (*C.int32_t)(unsafe.Pointer(&cTokens[0]))
	}
	buf := make([]byte, 4096)
	n := C.ct2_detokenize(t.handle, ptr, C.int(len(tokens)), (*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf)))
	if n < 0 {
		return "", fmt.Errorf("ctranslate2: detokenization failed")
	}
	return string(buf[:n]), nil
}

// reclaim requests the runtime release unreferenced memory, notably on the
// accelerator, once the caller is done with a burst of generation calls.
func (t *translator) reclaim() {
	C.ct2_reclaim(t.handle)
}

func (t *translator) close() {
	C.ct2_translator_free(t.handle)
	t.handle = nil
}
