// Package accelerator probes for a compatible accelerator by asking the
// inference runtime directly (not the deep-learning framework) whether a
// compatible device exists, downgrading to CPU and logging it if not: a
// backend enum, platform-ordered auto-detection with explicit CPU
// fallback, and a stats struct the resource monitor reads from. It
// queries llama.cpp's ggml backend registry through the vendored library
// under lib/llama via CGO; the translation engine (pkg/mt) links a
// separate runtime, CTranslate2.
package accelerator

import "sync"

// Backend identifies the active accelerator kind.
type Backend string

const (
	BackendNone  Backend = "none"
	BackendCPU   Backend = "cpu"
	BackendCUDA  Backend = "cuda"
	BackendMetal Backend = "metal"
)

// Stats is the accelerator-side contribution to a resource sample (VRAM
// used/total).
type Stats struct {
	Backend    Backend
	DeviceName string
	VRAMUsedMB int64
	VRAMTotalMB int64
}

// Accelerator is a thread-safe handle to the probed device, created once
// during bootstrap and torn down once on shutdown.
type Accelerator struct {
	mu      sync.RWMutex
	backend Backend
	device  string
	vramMB  int64
}

// Probe detects a compatible accelerator. preferred, when non-empty,
// constrains the search ("cpu" forces CPU-only). On any failure to find
// one it returns a CPU-only Accelerator and a nil error: downgrading to
// CPU is a supported outcome, not a startup failure.
func Probe(preferred string) (*Accelerator, error) {
	a := &Accelerator{backend: BackendCPU, device: "CPU"}
	if preferred == "cpu" {
		return a, nil
	}
	name, vramMB, backend, ok := probeRuntime()
	if !ok {
		return a, nil
	}
	a.backend = backend
	a.device = name
	a.vramMB = vramMB
	return a, nil
}

func (a *Accelerator) Backend() Backend {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend
}

func (a *Accelerator) DeviceName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.device
}

func (a *Accelerator) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend != BackendCPU && a.backend != BackendNone
}

// Stats samples the current VRAM usage. Used-bytes reporting is
// best-effort; the resource monitor (pkg/monitor) treats a zero total as
// "unknown" rather than as an alert condition.
func (a *Accelerator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	usedMB, totalMB := deviceMemoryMB()
	if totalMB == 0 {
		totalMB = a.vramMB
	}
	return Stats{
		Backend:     a.backend,
		DeviceName:  a.device,
		VRAMUsedMB:  usedMB,
		VRAMTotalMB: totalMB,
	}
}

// Release marks the accelerator as released (backend "none"). The ggml
// registry exposes no teardown call, so no runtime state is freed here.
func (a *Accelerator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	releaseRuntime()
	a.backend = BackendNone
}
