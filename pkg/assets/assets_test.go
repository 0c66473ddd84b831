package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

type fakeFetcher struct {
	content map[string]string
	calls   int
	fail    bool
}

func (f *fakeFetcher) Fetch(hub, relPath string) (io.ReadCloser, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("simulated network failure")
	}
	return io.NopCloser(strings.NewReader(f.content[relPath])), nil
}

func sha3Hex(s string) string {
	h := sha3.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:])
}

func TestEnsureDownloadsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{content: map[string]string{"model.bin": "weights"}}
	p := NewProvisioner(fetcher)

	manifest := []ManifestEntry{{RelPath: "model.bin", SHA3_256: sha3Hex("weights")}}
	require.NoError(t, p.Ensure("https://hub.example/model", dir, manifest))

	data, err := os.ReadFile(filepath.Join(dir, "model.bin"))
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))
	assert.Equal(t, 1, fetcher.calls)

	_, err = os.Stat(filepath.Join(dir, MarkerFile))
	assert.NoError(t, err)
}

func TestEnsureSkipsReDownloadWhenMarkerPresent(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{content: map[string]string{"model.bin": "weights"}}
	p := NewProvisioner(fetcher)
	manifest := []ManifestEntry{{RelPath: "model.bin", SHA3_256: sha3Hex("weights")}}

	require.NoError(t, p.Ensure("hub", dir, manifest))
	require.NoError(t, p.Ensure("hub", dir, manifest))
	assert.Equal(t, 1, fetcher.calls)
}

func TestEnsureRefetchesOnChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.bin"), []byte("stale"), 0o644))
	fetcher := &fakeFetcher{content: map[string]string{"model.bin": "fresh"}}
	p := NewProvisioner(fetcher)

	manifest := []ManifestEntry{{RelPath: "model.bin", SHA3_256: sha3Hex("fresh")}}
	require.NoError(t, p.Ensure("hub", dir, manifest))

	data, err := os.ReadFile(filepath.Join(dir, "model.bin"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestEnsureReturnsActionableErrorOnFetchFailure(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{fail: true}
	p := NewProvisioner(fetcher)

	manifest := []ManifestEntry{{RelPath: "model.bin", SHA3_256: "anything"}}
	err := p.Ensure("hub", dir, manifest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.bin")
}

func TestEnsureLeavesNoPartialFileOnChecksumFailure(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{content: map[string]string{"model.bin": "wrong-bytes"}}
	p := NewProvisioner(fetcher)

	manifest := []ManifestEntry{{RelPath: "model.bin", SHA3_256: sha3Hex("expected-bytes")}}
	err := p.Ensure("hub", dir, manifest)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "model.bin"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, "model.bin.part"))
	assert.True(t, os.IsNotExist(statErr))
}
