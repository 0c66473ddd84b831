package assets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// manifestFile is the on-disk shape of manifest.yaml, the engine-specific
// configuration file shipped alongside a model's assets. This is the one
// place a model's expected file list is not hard-coded into the Go binary.
type manifestFile struct {
	Files []struct {
		Path     string `yaml:"path"`
		SHA3_256 string `yaml:"sha3_256"`
	} `yaml:"files"`
}

// LoadManifest reads a manifest.yaml from disk and returns the
// ManifestEntry list Ensure expects.
func LoadManifest(path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	entries := make([]ManifestEntry, len(mf.Files))
	for i, f := range mf.Files {
		entries[i] = ManifestEntry{RelPath: f.Path, SHA3_256: f.SHA3_256}
	}
	return entries, nil
}
