//go:build cgo && (darwin || linux)

package accelerator

/*
#cgo CFLAGS: -I${SRCDIR}/lib/llama
#cgo linux LDFLAGS: -L${SRCDIR}/lib/llama -lllama -lggml -lstdc++ -lm
#cgo darwin LDFLAGS: -L${SRCDIR}/lib/llama -lllama -lggml -framework Accelerate -framework Metal -framework Foundation -lstdc++

#include <stdlib.h>
#include "llama.h"

// ggml's backend registry enumerates every compiled-in device (CPU, CUDA,
// Metal, ...). Querying it asks the inference runtime directly — llama.cpp
// itself — rather than a generic CUDA/Metal availability check performed
// out-of-band.
static int scanlate_backend_count() {
    return (int)ggml_backend_dev_count();
}

static const char* scanlate_backend_name(int i) {
    ggml_backend_dev_t dev = ggml_backend_dev_get((size_t)i);
    return ggml_backend_dev_name(dev);
}

static int scanlate_backend_type(int i) {
    ggml_backend_dev_t dev = ggml_backend_dev_get((size_t)i);
    return (int)ggml_backend_dev_type(dev);
}

static void scanlate_backend_memory(int i, size_t* free_bytes, size_t* total_bytes) {
    ggml_backend_dev_t dev = ggml_backend_dev_get((size_t)i);
    ggml_backend_dev_memory(dev, free_bytes, total_bytes);
}
*/
import "C"

import "sync"

const (
	ggmlBackendDeviceTypeGPU = 1 // GGML_BACKEND_DEVICE_TYPE_GPU
)

var probeOnce sync.Once
var probed struct {
	name    string
	vramMB  int64
	backend Backend
	ok      bool
}

func probeRuntime() (name string, vramMB int64, backend Backend, ok bool) {
	probeOnce.Do(func() {
		n := int(C.scanlate_backend_count())
		for i := 0; i < n; i++ {
			if int(C.scanlate_backend_type(C.int(i))) != ggmlBackendDeviceTypeGPU {
				continue
			}
			var free, total C.size_t
			C.scanlate_backend_memory(C.int(i), &free, &total)
			probed.name = C.GoString(C.scanlate_backend_name(C.int(i)))
			probed.vramMB = int64(total) / (1024 * 1024)
			probed.backend = guessBackend(probed.name)
			probed.ok = true
			return
		}
	})
	return probed.name, probed.vramMB, probed.backend, probed.ok
}

func guessBackend(name string) Backend {
	switch {
	case containsFold(name, "metal"):
		return BackendMetal
	case containsFold(name, "cuda"), containsFold(name, "nvidia"):
		return BackendCUDA
	default:
		// Unrecognized GPU-type device name (e.g. an OpenCL/Vulkan device
		// ggml enumerated but pkg/mt's backend can't use).
		return BackendCPU
	}
}

func containsFold(s, substr string) bool {
	// Local, allocation-free case-insensitive substring search; avoids a
	// strings.ToLower allocation on a hot-ish bootstrap path.
	n, m := len(s), len(substr)
	for i := 0; i+m <= n; i++ {
		match := true
		for j := 0; j < m; j++ {
			a, b := s[i+j], substr[j]
			if 'A' <= a && a <= 'Z' {
				a += 'a' - 'A'
			}
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func deviceMemoryMB() (usedMB, totalMB int64) {
	n := int(C.scanlate_backend_count())
	for i := 0; i < n; i++ {
		if int(C.scanlate_backend_type(C.int(i))) != ggmlBackendDeviceTypeGPU {
			continue
		}
		var free, total C.size_t
		C.scanlate_backend_memory(C.int(i), &free, &total)
		totalMB = int64(total) / (1024 * 1024)
		usedMB = (int64(total) - int64(free)) / (1024 * 1024)
		return
	}
	return 0, 0
}

func releaseRuntime() {}
