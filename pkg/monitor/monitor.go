// Package monitor implements a periodic background sampler of process and
// accelerator resource usage that logs once per sample when a threshold is
// crossed, never aborts the server on a sampling failure, and exposes its
// last sample for the status RPC.
package monitor

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/orneryd/scanlate/pkg/accelerator"
)

// Default thresholds.
const (
	DefaultInterval = 5 * time.Minute

	VRAMCriticalPercent = 90.0
	HandleCountCritical = 10000
	RSSWarningBytes     = 1 << 30 // 1 GiB
)

// Sample is one resource snapshot.
type Sample struct {
	Timestamp   time.Time
	RSSBytes    uint64
	HeapBytes   uint64
	Goroutines  int
	Handles     int64
	VRAMUsedMB  int64
	VRAMTotalMB int64
	VRAMPercent float64
}

// Monitor periodically samples resource usage and logs threshold
// crossings once per sample, never per caller.
type Monitor struct {
	interval time.Duration
	accel    *accelerator.Accelerator
	log      zerolog.Logger

	mu   sync.RWMutex
	last Sample

	stop    chan struct{}
	done    chan struct{}
	started atomic.Bool
}

// New constructs a Monitor. accel may be nil — in that case every sample
// reports zero VRAM and the monitor still runs CPU-side sampling.
func New(interval time.Duration, accel *accelerator.Accelerator, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		interval: interval,
		accel:    accel,
		log:      log.With().Str("component", "monitor").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sampling goroutine. Calling Start twice is a no-op.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.run()
}

func (m *Monitor) run() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sampleOnce() // first sample immediately, don't wait a full interval
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sampleOnce()
		}
	}
}

func (m *Monitor) sampleOnce() {
	s := Sample{Timestamp: time.Now()}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.HeapBytes = mem.Alloc
	s.Goroutines = runtime.NumGoroutine()

	if rss, err := readRSSBytes(); err != nil {
		// CPU-side metrics degrade independently of the accelerator; a
		// failed rusage read never aborts the server.
		m.log.Warn().Err(err).Msg("resource sample: rss unavailable")
	} else {
		s.RSSBytes = rss
	}

	if handles, err := readHandleCount(); err == nil {
		s.Handles = handles
	}

	if m.accel != nil && m.accel.IsEnabled() {
		stats := m.accel.Stats()
		s.VRAMUsedMB = stats.VRAMUsedMB
		s.VRAMTotalMB = stats.VRAMTotalMB
		if stats.VRAMTotalMB > 0 {
			s.VRAMPercent = 100 * float64(stats.VRAMUsedMB) / float64(stats.VRAMTotalMB)
		}
	}

	m.mu.Lock()
	m.last = s
	m.mu.Unlock()

	m.logThresholds(s)
}

func (m *Monitor) logThresholds(s Sample) {
	if s.VRAMTotalMB > 0 && s.VRAMPercent > VRAMCriticalPercent {
		m.log.Error().Float64("vram_percent", s.VRAMPercent).Msg("vram usage above critical threshold")
	}
	if s.Handles > HandleCountCritical {
		m.log.Error().Int64("handles", s.Handles).Msg("handle count above critical threshold")
	}
	if s.RSSBytes > RSSWarningBytes {
		m.log.Warn().Uint64("rss_bytes", s.RSSBytes).Msg("rss above warning threshold")
	}
}

// Last returns the most recent sample. Before the first sample, which
// Start takes immediately, it is the zero value.
func (m *Monitor) Last() Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Stop signals the sampling goroutine to exit and waits up to the given
// context's deadline for it to finish.
func (m *Monitor) Stop(ctx context.Context) error {
	if !m.started.Load() {
		return nil
	}
	close(m.stop)
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func readRSSBytes() (uint64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, err
	}
	// Linux reports ru_maxrss in KB; darwin reports it in bytes.
	maxrss := int64(ru.Maxrss)
	if runtime.GOOS == "darwin" {
		return uint64(maxrss), nil
	}
	return uint64(maxrss) * 1024, nil
}
