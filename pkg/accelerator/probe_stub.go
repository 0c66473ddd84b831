//go:build !cgo || (!darwin && !linux)

package accelerator

// probeRuntime reports no accelerator on platforms without the CGO
// llama.cpp binding. The caller treats this as a supported CPU-only
// outcome, never a startup failure.
func probeRuntime() (name string, vramMB int64, backend Backend, ok bool) {
	return "", 0, BackendNone, false
}

func deviceMemoryMB() (usedMB, totalMB int64) { return 0, 0 }

func releaseRuntime() {}
