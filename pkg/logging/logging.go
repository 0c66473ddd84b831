// Package logging configures the process-wide structured logger and the
// readiness-marker handshake the host process synchronizes startup on.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. debug raises the level to Debug;
// otherwise Info. Writes go to stderr so stdout stays free for any future
// machine-readable output, matching the teacher's convention of keeping
// stdout uncluttered.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// ReadinessMarker is the stable ASCII token the host process synchronizes
// on.
const ReadinessMarker = "[SERVER_START]"

// SignalReady writes the readiness marker directly to w (normally
// os.Stderr) and flushes, bypassing the structured logger entirely: this
// line must reach the host process immediately, never sitting in a log
// formatter's internal buffer.
func SignalReady(w io.Writer) error {
	if _, err := fmt.Fprintln(w, ReadinessMarker); err != nil {
		return err
	}
	if f, ok := w.(*os.File); ok {
		return f.Sync()
	}
	return nil
}

// GuardedWriter wraps an *os.File so writes are silently dropped if the
// file descriptor turns out to be unusable, e.g. the process was launched
// without attached standard streams.
type GuardedWriter struct {
	f *os.File
}

func NewGuardedWriter(f *os.File) *GuardedWriter { return &GuardedWriter{f: f} }

func (g *GuardedWriter) Write(p []byte) (int, error) {
	if g.f == nil {
		return len(p), nil
	}
	n, err := g.f.Write(p)
	if err != nil {
		// Standard stream unusable; swallow further errors rather than
		// crash a server whose only fault is a detached console.
		g.f = nil
		return len(p), nil
	}
	return n, nil
}

// SuppressThirdPartyWarnings centralizes the process-wide environment
// writes that must happen before any heavy library is loaded. Returns the
// set of variables it set, for logging by the caller.
func SuppressThirdPartyWarnings() map[string]string {
	set := map[string]string{
		"TOKENIZERS_PARALLELISM": "false",
		"OMP_WAIT_POLICY":        "PASSIVE",
		"GRPC_VERBOSITY":         "ERROR",
	}
	for k, v := range set {
		os.Setenv(k, v)
	}
	return set
}

// librarySearchPathVar is the OS-specific environment variable the dynamic
// linker consults when resolving a shared library by name.
func librarySearchPathVar() string {
	switch runtime.GOOS {
	case "windows":
		return "PATH"
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// competingToolchainMarkers are directory-name fragments that identify a
// Python distribution's own CUDA/BLAS shared libraries — conda and
// miniconda installs routinely land ahead of the libraries this process's
// CGO bindings expect on the search path, and a stray cublas or libomp
// picked up from one of them fails to load or silently mismatches the
// version the inference backend was built against.
var competingToolchainMarkers = []string{"miniconda", "anaconda", "conda"}

// SanitizeLibrarySearchPath strips any directory naming a competing
// Python toolchain install from the dynamic-library search path,
// returning what it removed. Call this before any CGO-backed inference
// library is loaded, so a conda-bundled CUDA/BLAS library never shadows
// the one this process was built against.
func SanitizeLibrarySearchPath(log zerolog.Logger) []string {
	varName := librarySearchPathVar()
	original := os.Getenv(varName)
	if original == "" {
		return nil
	}
	parts := strings.Split(original, string(os.PathListSeparator))
	kept := make([]string, 0, len(parts))
	var removed []string
	for _, dir := range parts {
		lower := strings.ToLower(filepath.ToSlash(dir))
		conflict := false
		for _, marker := range competingToolchainMarkers {
			if strings.Contains(lower, marker) {
				conflict = true
				break
			}
		}
		if conflict {
			removed = append(removed, dir)
			continue
		}
		kept = append(kept, dir)
	}
	if len(removed) == 0 {
		return nil
	}
	os.Setenv(varName, strings.Join(kept, string(os.PathListSeparator)))
	for _, dir := range removed {
		log.Info().Str("var", varName).Str("removed", dir).Msg("excluded competing toolchain directory from library search path")
	}
	return removed
}

// StartupTimeout is the hard ceiling the bootstrap sequence allows itself
// before giving up, distinct from any per-request timeout.
const StartupTimeout = 30 * time.Second
