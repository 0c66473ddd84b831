// Package assets provisions model assets at bootstrap: before the engine
// is constructed, it ensures the model directory named by pkg/config
// exists and is complete, downloading it from a remote hub if not. This
// package never validates model contents — only that the expected files
// are present and checksum-verified; the engine's own Load, also run at
// bootstrap, is what actually parses the model.
package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/sha3"
)

// MarkerFile is written after a provisioning run completes successfully,
// so subsequent bootstraps can skip re-downloading.
const MarkerFile = ".scanlate-complete"

// ManifestEntry describes one file expected inside a model asset
// directory and its expected sha3-256 checksum.
type ManifestEntry struct {
	RelPath  string
	SHA3_256 string
}

// Fetcher retrieves a named asset's bytes from a remote hub. Implementing
// this as an interface keeps the provisioner testable without a network
// dependency and lets cmd/ wire in whatever transport the hub needs.
type Fetcher interface {
	Fetch(hub, relPath string) (io.ReadCloser, error)
}

// Provisioner ensures a model directory is present and checksum-complete.
type Provisioner struct {
	fetcher Fetcher
}

func NewProvisioner(f Fetcher) *Provisioner {
	return &Provisioner{fetcher: f}
}

// Ensure checks modelDir against manifest and downloads anything missing
// or checksum-mismatched from hub. It runs once at startup, off the
// request-serving path.
func (p *Provisioner) Ensure(hub, modelDir string, manifest []ManifestEntry) error {
	if markerComplete(modelDir) {
		return nil
	}
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return fmt.Errorf("create model directory %s: %w", modelDir, err)
	}

	for _, entry := range manifest {
		dest := filepath.Join(modelDir, entry.RelPath)
		if ok, err := fileMatches(dest, entry.SHA3_256); err == nil && ok {
			continue
		}
		if err := p.fetchOne(hub, entry, dest); err != nil {
			return actionableError(hub, entry.RelPath, err)
		}
	}

	return writeMarker(modelDir)
}

func (p *Provisioner) fetchOne(hub string, entry ManifestEntry, dest string) error {
	rc, err := p.fetcher.Fetch(hub, entry.RelPath)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	h := sha3.New256()
	if _, err := io.Copy(io.MultiWriter(f, h), rc); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	got := fmt.Sprintf("%x", h.Sum(nil))
	if entry.SHA3_256 != "" && got != entry.SHA3_256 {
		os.Remove(tmp)
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", entry.RelPath, entry.SHA3_256, got)
	}

	// Atomic publish: rename only after the full write and checksum check
	// succeed, so a crash mid-download never leaves a half-written asset
	// at its final path.
	return os.Rename(tmp, dest)
}

func fileMatches(path, expectedSHA3 string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if expectedSHA3 == "" {
		return true, nil
	}
	h := sha3.New256()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return fmt.Sprintf("%x", h.Sum(nil)) == expectedSHA3, nil
}

func markerComplete(modelDir string) bool {
	_, err := os.Stat(filepath.Join(modelDir, MarkerFile))
	return err == nil
}

func writeMarker(modelDir string) error {
	return os.WriteFile(filepath.Join(modelDir, MarkerFile), []byte("ok\n"), 0o644)
}

// actionableError wraps a provisioning failure with the kind of detail an
// operator needs to act on — connectivity, permissions, repository
// reachability — rather than surfacing the bare transport error.
func actionableError(hub, relPath string, cause error) error {
	hint := "check network connectivity and that the model repository is reachable"
	if os.IsPermission(cause) {
		hint = "check filesystem permissions on the model directory"
	}
	return fmt.Errorf("provisioning %s from %s failed (%s): %w", relPath, hub, hint, cause)
}
